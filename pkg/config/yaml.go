package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// duration wraps time.Duration so YAML files can use "15s" style values
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = duration(parsed)
	return nil
}

// UnmarshalYAML keeps file durations human-readable while the exported
// fields stay time.Duration.
func (c *ServerConfig) UnmarshalYAML(value *yaml.Node) error {
	aux := struct {
		Host            string   `yaml:"host"`
		Port            string   `yaml:"port"`
		ReadTimeout     duration `yaml:"read_timeout"`
		WriteTimeout    duration `yaml:"write_timeout"`
		IdleTimeout     duration `yaml:"idle_timeout"`
		ShutdownTimeout duration `yaml:"shutdown_timeout"`
		HealthPort      string   `yaml:"health_port"`
	}{
		Host:            c.Host,
		Port:            c.Port,
		ReadTimeout:     duration(c.ReadTimeout),
		WriteTimeout:    duration(c.WriteTimeout),
		IdleTimeout:     duration(c.IdleTimeout),
		ShutdownTimeout: duration(c.ShutdownTimeout),
		HealthPort:      c.HealthPort,
	}
	if err := value.Decode(&aux); err != nil {
		return err
	}
	c.Host = aux.Host
	c.Port = aux.Port
	c.ReadTimeout = time.Duration(aux.ReadTimeout)
	c.WriteTimeout = time.Duration(aux.WriteTimeout)
	c.IdleTimeout = time.Duration(aux.IdleTimeout)
	c.ShutdownTimeout = time.Duration(aux.ShutdownTimeout)
	c.HealthPort = aux.HealthPort
	return nil
}

func (c *DatabaseConfig) UnmarshalYAML(value *yaml.Node) error {
	aux := struct {
		URL             string   `yaml:"url"`
		MaxOpenConns    int      `yaml:"max_open_conns"`
		MaxIdleConns    int      `yaml:"max_idle_conns"`
		ConnMaxLifetime duration `yaml:"conn_max_lifetime"`
	}{
		URL:             c.URL,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: duration(c.ConnMaxLifetime),
	}
	if err := value.Decode(&aux); err != nil {
		return err
	}
	c.URL = aux.URL
	c.MaxOpenConns = aux.MaxOpenConns
	c.MaxIdleConns = aux.MaxIdleConns
	c.ConnMaxLifetime = time.Duration(aux.ConnMaxLifetime)
	return nil
}

func (c *CacheConfig) UnmarshalYAML(value *yaml.Node) error {
	aux := struct {
		Size int      `yaml:"size"`
		TTL  duration `yaml:"ttl"`
	}{
		Size: c.Size,
		TTL:  duration(c.TTL),
	}
	if err := value.Decode(&aux); err != nil {
		return err
	}
	c.Size = aux.Size
	c.TTL = time.Duration(aux.TTL)
	return nil
}

func (c *OutboundConfig) UnmarshalYAML(value *yaml.Node) error {
	aux := struct {
		WebhookTimeout   duration `yaml:"webhook_timeout"`
		ConnectorTimeout duration `yaml:"connector_timeout"`
	}{
		WebhookTimeout:   duration(c.WebhookTimeout),
		ConnectorTimeout: duration(c.ConnectorTimeout),
	}
	if err := value.Decode(&aux); err != nil {
		return err
	}
	c.WebhookTimeout = time.Duration(aux.WebhookTimeout)
	c.ConnectorTimeout = time.Duration(aux.ConnectorTimeout)
	return nil
}
