/*
Copyright 2025 The cf-ts-dns Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"context"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const (
	etcdKeyPrefix   = "/cf-ts-dns/"
	etcdDialTimeout = 5 * time.Second
)

// EtcdKV stores keys in an etcd cluster, for deployments that want the
// configuration shared across replicas.
type EtcdKV struct {
	client *clientv3.Client
}

// NewEtcdKV connects to the given etcd endpoints.
func NewEtcdKV(endpoints []string) (*EtcdKV, error) {
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: etcdDialTimeout,
	})
	if err != nil {
		return nil, err
	}
	return &EtcdKV{client: client}, nil
}

func (e *EtcdKV) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := e.client.Get(ctx, etcdKeyPrefix+key)
	if err != nil {
		return nil, err
	}
	if len(resp.Kvs) == 0 {
		return nil, ErrNotFound
	}
	return resp.Kvs[0].Value, nil
}

func (e *EtcdKV) Put(ctx context.Context, key string, value []byte) error {
	_, err := e.client.Put(ctx, etcdKeyPrefix+key, string(value))
	return err
}

// Close releases the etcd connection.
func (e *EtcdKV) Close() error {
	return e.client.Close()
}
