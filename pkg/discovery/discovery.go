package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/example/moonjewelry/pkg/config"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

const defaultLeaseTTL = 30

// KV is the slice of the etcd client registration needs.
type KV interface {
	Grant(ctx context.Context, ttl int64) (*clientv3.LeaseGrantResponse, error)
	Revoke(ctx context.Context, id clientv3.LeaseID) (*clientv3.LeaseRevokeResponse, error)
	KeepAlive(ctx context.Context, id clientv3.LeaseID) (<-chan *clientv3.LeaseKeepAliveResponse, error)
	Put(ctx context.Context, key, val string, opts ...clientv3.OpOption) (*clientv3.PutResponse, error)
	Get(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error)
	Delete(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.DeleteResponse, error)
	Close() error
}

// Registry announces storefront instances in etcd so load balancers and ops
// tooling can find them.
type Registry struct {
	client KV
	config *config.EtcdConfig
	logger *zap.Logger

	mu     sync.Mutex
	leases map[string]clientv3.LeaseID
}

type Instance struct {
	Name string
	Host string
	Port int
}

func (i Instance) Addr() string {
	return net.JoinHostPort(i.Host, strconv.Itoa(i.Port))
}

func NewRegistry(cfg *config.EtcdConfig, logger *zap.Logger) (*Registry, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
		Logger:      logger.Named("etcd"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}
	return NewRegistryFromClient(cli, cfg, logger), nil
}

func NewRegistryFromClient(client KV, cfg *config.EtcdConfig, logger *zap.Logger) *Registry {
	return &Registry{
		client: client,
		config: cfg,
		logger: logger,
		leases: make(map[string]clientv3.LeaseID),
	}
}

func (r *Registry) key(instance Instance) string {
	return fmt.Sprintf("%s%s/%s", r.config.Prefix, instance.Name, instance.Addr())
}

// Register writes the instance under a lease that is kept alive until ctx is
// cancelled or Deregister is called.
func (r *Registry) Register(ctx context.Context, instance Instance) error {
	ttl := r.config.LeaseTTL
	if ttl <= 0 {
		ttl = defaultLeaseTTL
	}

	lease, err := r.client.Grant(ctx, ttl)
	if err != nil {
		return fmt.Errorf("failed to create lease: %w", err)
	}

	key := r.key(instance)
	if _, err := r.client.Put(ctx, key, instance.Addr(), clientv3.WithLease(lease.ID)); err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}

	ch, err := r.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return fmt.Errorf("failed to keep alive: %w", err)
	}

	r.mu.Lock()
	r.leases[key] = lease.ID
	r.mu.Unlock()

	go func() {
		for range ch {
		}
		r.logger.Debug("Lease keep-alive stopped", zap.String("key", key))
	}()

	r.logger.Info("Service registered in etcd",
		zap.String("key", key),
		zap.Int64("ttl", ttl))
	return nil
}

func (r *Registry) Discover(ctx context.Context, serviceName string) ([]Instance, error) {
	prefix := fmt.Sprintf("%s%s/", r.config.Prefix, serviceName)

	resp, err := r.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to discover service: %w", err)
	}

	instances := make([]Instance, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		host, portStr, err := net.SplitHostPort(string(kv.Value))
		if err != nil {
			r.logger.Warn("Skipping malformed registration", zap.ByteString("key", kv.Key), zap.Error(err))
			continue
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			r.logger.Warn("Skipping malformed registration", zap.ByteString("key", kv.Key), zap.Error(err))
			continue
		}
		instances = append(instances, Instance{Name: serviceName, Host: host, Port: port})
	}
	return instances, nil
}

func (r *Registry) Deregister(ctx context.Context, instance Instance) error {
	key := r.key(instance)
	if _, err := r.client.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to deregister service: %w", err)
	}

	r.mu.Lock()
	id, ok := r.leases[key]
	delete(r.leases, key)
	r.mu.Unlock()
	if ok {
		if _, err := r.client.Revoke(ctx, id); err != nil {
			return fmt.Errorf("failed to revoke lease: %w", err)
		}
	}
	return nil
}

func (r *Registry) Close() error {
	return r.client.Close()
}
