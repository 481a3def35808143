// Package stream turns a chunked model stream into either a plain assistant
// message or an extracted generation payload.
package stream

import (
	"context"
	"errors"
	"io"
	"strings"

	"studio/internal/domain"
	"studio/internal/extract"
	"studio/internal/inference"
	"studio/internal/infra"
)

// Result is the outcome of one completed stream.
type Result struct {
	FullText   string
	Payload    domain.GenerationPayload
	HasPayload bool
}

// Ingestor consumes completion streams and runs payload extraction at
// end-of-stream.
type Ingestor struct {
	streamer inference.Streamer
	logger   infra.Logger
}

// NewIngestor wires the ingestor to its model collaborator.
func NewIngestor(streamer inference.Streamer, logger infra.Logger) *Ingestor {
	return &Ingestor{streamer: streamer, logger: logger}
}

// Run streams one completion. onDelta receives the accumulated buffer after
// each chunk so a UI can render partial output; it may be nil. A transport
// error mid-stream returns the partial buffer alongside a stream failure so
// the caller can preserve what arrived.
func (in *Ingestor) Run(ctx context.Context, req inference.Request, onDelta func(string)) (Result, error) {
	s, err := in.streamer.Stream(ctx, req)
	if err != nil {
		return Result{}, domain.NewFailure(domain.FailureStream, "", err)
	}
	defer s.Close()

	var buffer strings.Builder
	for {
		chunk, err := s.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			in.logger.Warn().Err(err).Msg("stream: aborted mid-flight")
			return Result{FullText: buffer.String()}, domain.NewFailure(domain.FailureStream, "", err)
		}
		if chunk == "" {
			continue
		}
		buffer.WriteString(chunk)
		if onDelta != nil {
			onDelta(buffer.String())
		}
	}

	full := buffer.String()
	payload, ok := extract.Payload(full)
	if ok {
		in.logger.Debug().Str("product", domain.GenerationPayload(payload).Product()).Msg("stream: payload extracted")
		return Result{FullText: full, Payload: payload, HasPayload: true}, nil
	}
	return Result{FullText: full}, nil
}
