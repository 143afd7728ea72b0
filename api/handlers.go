package api

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/GKaszewski/k-core/pkg/broker"
	"github.com/GKaszewski/k-core/pkg/vector"
)

const sessionVisitsKey = "visits"

// HealthResponse reports the active backend of each capability.
type HealthResponse struct {
	Status           string `json:"status"`
	Database         string `json:"database,omitempty"`
	Broker           string `json:"broker,omitempty"`
	EmbeddingWorkers int    `json:"embedding_workers,omitempty"`
	Error            string `json:"error,omitempty"`
}

// SessionResponse is the reply to GET /v1/session.
type SessionResponse struct {
	Visits int  `json:"visits"`
	Fresh  bool `json:"fresh"`
}

// EmbedRequest is the body of POST /v1/embeddings.
type EmbedRequest struct {
	Text string `json:"text"`
}

// EmbedResponse is the reply to POST /v1/embeddings.
type EmbedResponse struct {
	Embedding  []float32 `json:"embedding"`
	Dimensions int       `json:"dimensions"`
}

// DocumentRequest is the body of POST /v1/documents. An empty ID is
// replaced by a random one.
type DocumentRequest struct {
	ID       string         `json:"id,omitempty"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// DocumentResponse is the reply to POST /v1/documents.
type DocumentResponse struct {
	ID string `json:"id"`
}

// SearchRequest is the body of POST /v1/search.
type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// SearchHit is one search result.
type SearchHit struct {
	ID       string         `json:"id"`
	Score    float32        `json:"score"`
	Text     string         `json:"text,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SearchResponse is the reply to POST /v1/search.
type SearchResponse struct {
	Query   string      `json:"query"`
	Results []SearchHit `json:"results"`
}

// DocumentIndexed is the data of a kcore.document.indexed event.
type DocumentIndexed struct {
	ID         string `json:"id"`
	Dimensions int    `json:"dimensions"`
}

// SessionStarted is the data of a kcore.session.started event.
type SessionStarted struct {
	SessionID string `json:"session_id"`
}

func unavailable(what string) error {
	return fiber.NewError(fiber.StatusServiceUnavailable, what+" is not configured")
}

// handlePing returns a simple liveness response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleHealth pings the database and reports the backend of each handle.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	resp := HealthResponse{Status: "ok"}
	if s.deps.Broker != nil {
		resp.Broker = string(s.deps.Broker.Kind())
	}
	if sized, ok := s.deps.Embedder.(interface{ Size() int }); ok {
		resp.EmbeddingWorkers = sized.Size()
	}

	if s.deps.Pool != nil {
		resp.Database = string(s.deps.Pool.Kind())
		if err := s.deps.Pool.Ping(c.Context()); err != nil {
			s.logger.Warn("health check failed", "error", err)
			resp.Status = "unavailable"
			resp.Error = err.Error()
			return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
		}
	}

	return c.JSON(resp)
}

// handleSession counts visits in the caller's session. A new session emits
// a kcore.session.started event.
func (s *Server) handleSession(c *fiber.Ctx) error {
	if s.sessions == nil {
		return unavailable("session store")
	}

	sess, err := s.sessions.Get(c)
	if err != nil {
		return err
	}

	fresh := sess.Fresh()
	visits, _ := sess.Get(sessionVisitsKey).(int)
	visits++
	sess.Set(sessionVisitsKey, visits)

	id := sess.ID()
	if err := sess.Save(); err != nil {
		return err
	}

	if fresh {
		s.emit(c.Context(), broker.EventTypeSessionStarted, SessionStarted{SessionID: id})
	}

	return c.JSON(SessionResponse{Visits: visits, Fresh: fresh})
}

// handlePublish publishes the raw request body to :topic.
func (s *Server) handlePublish(c *fiber.Ctx) error {
	if s.deps.Broker == nil {
		return unavailable("broker")
	}

	// Route params are raw path segments.
	topic, err := url.PathUnescape(c.Params("topic"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid topic encoding")
	}

	// Body is only valid for the handler's lifetime.
	payload := append([]byte(nil), c.Body()...)
	if err := s.deps.Broker.Publish(c.Context(), topic, payload); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusAccepted)
}

// handleEmbed returns the embedding of the request text.
func (s *Server) handleEmbed(c *fiber.Ctx) error {
	if s.deps.Embedder == nil {
		return unavailable("embedder")
	}

	var req EmbedRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	vec, err := s.deps.Embedder.Embed(c.Context(), req.Text)
	if err != nil {
		return err
	}

	return c.JSON(EmbedResponse{Embedding: vec, Dimensions: len(vec)})
}

// handleIndexDocument embeds the document text and upserts it into the
// vector index.
func (s *Server) handleIndexDocument(c *fiber.Ctx) error {
	if s.deps.Embedder == nil || s.deps.Vectors == nil {
		return unavailable("document indexing")
	}

	var req DocumentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	id := uuid.New()
	if req.ID != "" {
		parsed, err := uuid.Parse(req.ID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "id must be a uuid")
		}
		id = parsed
	}

	ctx := c.Context()
	vec, err := s.deps.Embedder.Embed(ctx, req.Text)
	if err != nil {
		return err
	}
	if err := s.ensureCollection(ctx, len(vec)); err != nil {
		return err
	}

	payload := map[string]any{"text": req.Text}
	if len(req.Metadata) > 0 {
		payload["metadata"] = req.Metadata
	}
	if err := s.deps.Vectors.Upsert(ctx, id, vec, payload); err != nil {
		return err
	}

	s.emit(ctx, broker.EventTypeDocumentIndexed, DocumentIndexed{ID: id.String(), Dimensions: len(vec)})

	return c.Status(fiber.StatusCreated).JSON(DocumentResponse{ID: id.String()})
}

// handleSearch embeds the query and returns the nearest documents.
func (s *Server) handleSearch(c *fiber.Ctx) error {
	if s.deps.Embedder == nil || s.deps.Vectors == nil {
		return unavailable("search")
	}

	var req SearchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Query) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "query is required")
	}
	switch {
	case req.TopK < 0:
		return fiber.NewError(fiber.StatusBadRequest, "top_k must be a positive integer")
	case req.TopK == 0:
		req.TopK = defaultSearchLimit
	case req.TopK > maxSearchLimit:
		req.TopK = maxSearchLimit
	}

	ctx := c.Context()
	vec, err := s.deps.Embedder.Embed(ctx, req.Query)
	if err != nil {
		return err
	}
	if err := s.ensureCollection(ctx, len(vec)); err != nil {
		return err
	}

	results, err := s.deps.Vectors.Search(ctx, vec, uint64(req.TopK))
	if err != nil {
		return err
	}

	resp := SearchResponse{Query: req.Query, Results: make([]SearchHit, 0, len(results))}
	for _, r := range results {
		hit := SearchHit{ID: r.ID.String(), Score: r.Score}
		hit.Text, _ = r.Payload["text"].(string)
		hit.Metadata, _ = r.Payload["metadata"].(map[string]any)
		resp.Results = append(resp.Results, hit)
	}

	return c.JSON(resp)
}

// ensureCollection creates the vector collection on first use and checks
// later vectors against its size.
func (s *Server) ensureCollection(ctx context.Context, size int) error {
	s.collectionMu.Lock()
	defer s.collectionMu.Unlock()

	if s.collectionSize != 0 {
		if s.collectionSize != uint64(size) {
			return vector.ErrDimensionMismatch
		}
		return nil
	}

	if err := s.deps.Vectors.EnsureCollection(ctx, uint64(size)); err != nil {
		return err
	}
	s.collectionSize = uint64(size)
	return nil
}

// emit publishes an event when a broker is configured. Failures are logged:
// the request itself already succeeded.
func (s *Server) emit(ctx context.Context, eventType string, data any) {
	if s.deps.Broker == nil {
		return
	}

	ev, err := broker.NewEvent(eventType, "kcore.api", data)
	if err == nil {
		err = broker.PublishEvent(ctx, s.deps.Broker, s.config.EventsTopic, ev)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("publishing event failed", "event_type", eventType, "error", err)
	}
}
