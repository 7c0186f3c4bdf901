package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/jonathan/jobprep/internal/db"
	"github.com/jonathan/jobprep/internal/workflow"
)

// IngestRequest is the request body for POST /jobs.
type IngestRequest struct {
	URL string `json:"url"`
}

// decodeBatchRequest parses the request body over the stage defaults, so
// omitted fields keep the behavior of a fully enabled run.
func decodeBatchRequest(r *http.Request) (*workflow.BatchRequest, error) {
	req := workflow.NewBatchRequest(nil)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return nil, err
	}
	return req, nil
}

// handleCreateBatch runs a batch synchronously and returns the full result.
func (s *Server) handleCreateBatch(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBatchRequest(r)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := s.orchestrator().ProcessBatch(r.Context(), req)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleStreamBatch runs a batch and streams progress events over SSE,
// finishing with the aggregate result.
func (s *Server) handleStreamBatch(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBatchRequest(r)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid batch request: "+err.Error())
		return
	}

	stream, err := newEventStream(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Buffered so a stalled client never blocks the pipelines; events beyond
	// the buffer are dropped, the final result event is always delivered.
	events := make(chan workflow.ProgressEvent, 256)
	orch := s.orchestrator()
	orch.AddProgressCallback(func(event workflow.ProgressEvent) {
		select {
		case events <- event:
		default:
		}
	})

	type batchReturn struct {
		result *workflow.BatchResult
		err    error
	}
	done := make(chan batchReturn, 1)
	go func() {
		result, err := orch.ProcessBatch(r.Context(), req)
		done <- batchReturn{result, err}
	}()

	for {
		select {
		case event := <-events:
			if err := stream.progress(event); err != nil {
				log.Printf("SSE write failed, client gone: %v", err)
			}
		case ret := <-done:
			// Drain events emitted before completion.
			for {
				select {
				case event := <-events:
					stream.progress(event) //nolint:errcheck
				default:
					if ret.err != nil {
						stream.fail(ret.err.Error())
						return
					}
					stream.result(ret.result)
					return
				}
			}
		}
	}
}

// handleListBatches returns stored batch summaries, newest first.
func (s *Server) handleListBatches(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	summaries, err := s.store.ListBatchResults(r.Context(), limit)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if summaries == nil {
		summaries = []db.BatchSummary{}
	}
	s.jsonResponse(w, http.StatusOK, summaries)
}

// handleGetBatch returns one batch result with its per-job outcomes.
func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	requestID := r.PathValue("id")
	result, err := s.store.GetBatchResult(r.Context(), requestID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if result == nil {
		err := &ErrBatchNotFound{RequestID: requestID}
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleIngestJob extracts a job posting from a URL and stores it.
func (s *Server) handleIngestJob(w http.ResponseWriter, r *http.Request) {
	if s.ingestor == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "Job ingestion is not configured")
		return
	}

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.URL == "" {
		s.errorResponse(w, http.StatusBadRequest, "url is required")
		return
	}

	job, err := s.ingestor.FromURL(r.Context(), req.URL)
	if err != nil {
		s.errorResponse(w, http.StatusBadGateway, "Ingestion failed: "+err.Error())
		return
	}
	if err := s.store.InsertJob(r.Context(), job); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.jsonResponse(w, http.StatusCreated, job)
}

// handleListJobs returns stored job postings, newest first.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	jobs, err := s.store.ListJobs(r.Context(), limit)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, jobs)
}

// handleGetJob returns one stored job posting.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid job id")
		return
	}

	job, err := s.store.GetJob(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		notFound := &ErrJobNotFound{JobID: id}
		s.errorResponse(w, HTTPStatus(notFound), notFound.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, job)
}
