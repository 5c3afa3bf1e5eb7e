// Package vectorutils is the vector store utility package
package vectorutils

import (
	"fmt"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/leadforgeco/leadforge/pkg/vector"
	"github.com/leadforgeco/leadforge/pkg/vector/chroma"
	"github.com/leadforgeco/leadforge/pkg/vector/qdrant"
	"github.com/leadforgeco/leadforge/pkg/vector/sqlitevec"
)

type NewDriverOpts struct {
	ProviderType string
	TargetURL    string
	DBPath       string
	Collection   string
	Dimensions   uint
	Logger       *zap.Logger
}

// NewFactory returns a vector.DriverFactory for the configured provider,
// suitable for handing to vector.NewIndex.
func NewFactory(o *NewDriverOpts) (vector.DriverFactory, error) {
	switch o.ProviderType {
	case "sqlite":
		if o.DBPath == "" {
			return nil, fmt.Errorf("sqlite vector store requires a database path")
		}
	case "chroma", "qdrant":
		if o.TargetURL == "" {
			return nil, fmt.Errorf("%s vector store requires a target URL", o.ProviderType)
		}
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}

	return func() (vector.Driver, error) {
		return NewDriver(o)
	}, nil
}

func NewDriver(o *NewDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case "sqlite":
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     o.DBPath,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case "chroma":
		return chroma.NewDriver(chroma.Config{
			URL:            o.TargetURL,
			CollectionName: o.Collection,
		}, o.Logger)
	case "qdrant":
		host, port, err := splitHostPort(o.TargetURL)
		if err != nil {
			return nil, err
		}
		return qdrant.NewDriver(qdrant.Config{
			Host:           host,
			Port:           port,
			CollectionName: o.Collection,
			Dimensions:     o.Dimensions,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}

// splitHostPort parses "host:port" or a URL form into qdrant's host and
// gRPC port. A missing port falls back to the driver default.
func splitHostPort(target string) (string, int, error) {
	u, err := url.Parse(target)
	if err == nil && u.Host != "" {
		target = u.Host
	}

	host := target
	port := 0
	if h, p, err := splitLast(target); err == nil {
		host = h
		port, _ = strconv.Atoi(p)
	}

	if host == "" {
		return "", 0, fmt.Errorf("invalid qdrant target: %q", target)
	}

	return host, port, nil
}

func splitLast(hostport string) (string, string, error) {
	for i := len(hostport) - 1; i >= 0; i-- {
		if hostport[i] == ':' {
			return hostport[:i], hostport[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("no port in %q", hostport)
}
