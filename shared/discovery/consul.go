package discovery

import (
	"fmt"
	"net"
	"strconv"

	"github.com/hashicorp/consul/api"
	"github.com/rs/zerolog"
)

// ServiceRegistration describes the instance announced to Consul.
type ServiceRegistration struct {
	Name     string
	Address  string
	HTTPPort int
	GRPCPort int
	Tags     []string
}

// ID returns the instance id, unique per name, address and port.
func (s ServiceRegistration) ID() string {
	return fmt.Sprintf("%s-%s-%d", s.Name, s.Address, s.HTTPPort)
}

// ConsulRegistry announces the service to a Consul agent with a gRPC health check.
type ConsulRegistry struct {
	client *api.Client
	logger *zerolog.Logger
}

func NewConsulRegistry(address string, logger *zerolog.Logger) (*ConsulRegistry, error) {
	cfg := api.DefaultConfig()
	if address != "" {
		cfg.Address = address
	}

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}

	return &ConsulRegistry{client: client, logger: logger}, nil
}

// Register adds the service to the local agent. The agent probes the gRPC health service of the instance.
func (r *ConsulRegistry) Register(svc ServiceRegistration) error {
	registration := &api.AgentServiceRegistration{
		ID:      svc.ID(),
		Name:    svc.Name,
		Address: svc.Address,
		Port:    svc.HTTPPort,
		Tags:    svc.Tags,
		Meta: map[string]string{
			"grpc_port": strconv.Itoa(svc.GRPCPort),
		},
		Check: &api.AgentServiceCheck{
			GRPC:                           net.JoinHostPort(svc.Address, strconv.Itoa(svc.GRPCPort)) + "/" + svc.Name,
			Interval:                       "10s",
			Timeout:                        "3s",
			DeregisterCriticalServiceAfter: "1m",
		},
	}

	if err := r.client.Agent().ServiceRegister(registration); err != nil {
		return fmt.Errorf("failed to register service %s: %w", svc.ID(), err)
	}

	r.logger.Info().Str("service_id", svc.ID()).Msg("registered service with consul")

	return nil
}

func (r *ConsulRegistry) Deregister(svc ServiceRegistration) error {
	if err := r.client.Agent().ServiceDeregister(svc.ID()); err != nil {
		return fmt.Errorf("failed to deregister service %s: %w", svc.ID(), err)
	}

	r.logger.Info().Str("service_id", svc.ID()).Msg("deregistered service from consul")

	return nil
}
