// Package qdrant is a vector Driver backed by a Qdrant server over gRPC.
package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/GKaszewski/k-core/pkg/logger"
	"github.com/GKaszewski/k-core/pkg/vector"
)

const (
	// DefaultURL is a local Qdrant's gRPC endpoint.
	DefaultURL = "http://localhost:6334"

	// DefaultCollection is the collection used when none is configured.
	DefaultCollection = "kcore"

	defaultPort = 6334
)

// Config holds the Qdrant connection settings.
type Config struct {
	// URL is the gRPC endpoint. https:// enables TLS.
	URL string

	APIKey     string
	Collection string
}

// Driver implements vector.Driver against one Qdrant collection.
type Driver struct {
	client     *qdrant.Client
	collection string
	logger     *slog.Logger
}

var _ vector.Driver = (*Driver)(nil)

// NewDriver creates a client for c.URL. The connection is established
// lazily by gRPC.
func NewDriver(c Config, log *slog.Logger) (*Driver, error) {
	if log == nil {
		log = logger.Nop()
	}
	if c.Collection == "" {
		c.Collection = DefaultCollection
	}
	if c.URL == "" {
		c.URL = DefaultURL
	}

	qc, err := clientConfig(c)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(qc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}

	return &Driver{
		client:     client,
		collection: c.Collection,
		logger:     log.With("collection", c.Collection),
	}, nil
}

func clientConfig(c Config) (*qdrant.Config, error) {
	raw := c.URL
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid qdrant url %q: %w", c.URL, err)
	}

	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("invalid qdrant url %q: missing host", c.URL)
	}
	port := defaultPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid qdrant url %q: %w", c.URL, err)
		}
	}

	return &qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: c.APIKey,
		UseTLS: u.Scheme == "https",

		// The version check dials eagerly; Health covers reachability.
		SkipCompatibilityCheck: true,
		PoolSize:               1,
	}, nil
}

// Endpoint returns host:port of the configured server.
func Endpoint(rawURL string) (string, error) {
	qc, err := clientConfig(Config{URL: rawURL})
	if err != nil {
		return "", err
	}
	return net.JoinHostPort(qc.Host, strconv.Itoa(qc.Port)), nil
}

func (d *Driver) EnsureCollection(ctx context.Context, size uint64) error {
	exists, err := d.client.CollectionExists(ctx, d.collection)
	if err != nil {
		return fmt.Errorf("%w: checking collection: %w", vector.ErrConnection, err)
	}
	if exists {
		return nil
	}

	err = d.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: d.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     size,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}
	d.logger.Info("created qdrant collection", "size", size)
	return nil
}

func (d *Driver) Upsert(ctx context.Context, id uuid.UUID, vec []float32, payload map[string]any) error {
	values, err := qdrant.TryValueMap(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	wait := true
	_, err = d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: d.collection,
		Wait:           &wait,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewID(id.String()),
			Vectors: qdrant.NewVectorsDense(vec),
			Payload: values,
		}},
	})
	if err != nil {
		return fmt.Errorf("upserting point: %w", err)
	}
	return nil
}

func (d *Driver) Search(ctx context.Context, vec []float32, limit uint64) ([]vector.Result, error) {
	points, err := d.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: d.collection,
		Query:          qdrant.NewQueryDense(vec),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying points: %w", err)
	}

	results := make([]vector.Result, 0, len(points))
	for _, p := range points {
		id, err := uuid.Parse(p.GetId().GetUuid())
		if err != nil {
			d.logger.Warn("skipping point without uuid id", "id", p.GetId().String())
			continue
		}
		results = append(results, vector.Result{
			ID:      id,
			Score:   p.GetScore(),
			Payload: fromValueMap(p.GetPayload()),
		})
	}
	return results, nil
}

func (d *Driver) Delete(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	pids := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pids = append(pids, qdrant.NewID(id.String()))
	}

	wait := true
	_, err := d.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: d.collection,
		Wait:           &wait,
		Points:         qdrant.NewPointsSelector(pids...),
	})
	if err != nil {
		return fmt.Errorf("deleting points: %w", err)
	}
	return nil
}

// Health checks the server is reachable.
func (d *Driver) Health(ctx context.Context) error {
	if _, err := d.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}
	return nil
}

func (d *Driver) Close() error {
	return d.client.Close()
}

func fromValueMap(m map[string]*qdrant.Value) map[string]any {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = fromValue(v)
	}
	return out
}

func fromValue(v *qdrant.Value) any {
	switch k := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return k.StringValue
	case *qdrant.Value_IntegerValue:
		return k.IntegerValue
	case *qdrant.Value_DoubleValue:
		return k.DoubleValue
	case *qdrant.Value_BoolValue:
		return k.BoolValue
	case *qdrant.Value_StructValue:
		return fromValueMap(k.StructValue.GetFields())
	case *qdrant.Value_ListValue:
		list := k.ListValue.GetValues()
		out := make([]any, 0, len(list))
		for _, item := range list {
			out = append(out, fromValue(item))
		}
		return out
	default:
		return nil
	}
}
