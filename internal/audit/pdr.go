// Package audit provides PDR (Process Decision Record) writing for archivist.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/fentz26/archivist/internal/models"
	"github.com/fentz26/archivist/internal/oracle"
	"github.com/fentz26/archivist/internal/store"
)

// PDRWriter writes Process Decision Records for audit trails. It observes
// oracle round trips and records every settled entry.
type PDRWriter struct {
	store  *store.Store
	logger *zap.Logger
}

// NewPDRWriter creates a new PDR writer.
func NewPDRWriter(s *store.Store, logger *zap.Logger) *PDRWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PDRWriter{store: s, logger: logger}
}

// Record writes a PDR entry for a state-mutating action.
func (w *PDRWriter) Record(ctx context.Context, action string, inputs interface{}, outcome, batchID, details string) (*models.PDREntry, error) {
	inputsHash := hashInputs(inputs)
	return w.store.WritePDR(ctx, action, inputsHash, outcome, batchID, details)
}

// ObserveCall records one oracle round trip.
func (w *PDRWriter) ObserveCall(ctx context.Context, call oracle.Call) {
	inputs := struct {
		Backend oracle.Backend `json:"backend"`
		Model   string         `json:"model"`
		Request string         `json:"request"`
	}{call.Backend, call.Model, call.Request}

	outcome, details := models.OutcomeSuccess, fmt.Sprintf("%s -> %s (%s)", call.Name, call.Response, call.Duration)
	if call.Err != nil {
		outcome, details = models.OutcomeFailure, fmt.Sprintf("%s: %v", call.Name, call.Err)
	}
	w.write(ctx, models.ActionOracleCall, inputs, outcome, "", details)
}

// RecordEntry records an entry that reached a terminal state.
func (w *PDRWriter) RecordEntry(ctx context.Context, batchID string, e *models.Entry) {
	inputs := struct {
		Name   string      `json:"name"`
		Source string      `json:"source"`
		Kind   models.Kind `json:"kind"`
	}{e.Name, e.SourcePath, e.Kind}

	action := models.ActionEntryMove
	if e.TargetPath == "" {
		action = models.ActionEntryClassify
	}

	outcome := models.OutcomeSuccess
	details := e.TargetPath
	if e.Failure != nil {
		outcome = models.OutcomeFailure
		details = e.Failure.Error()
	}
	w.write(ctx, action, inputs, outcome, batchID, details)
}

// RecordBatch stores the finished batch and a closing record for it.
func (w *PDRWriter) RecordBatch(ctx context.Context, r *models.BatchResult, backend oracle.Backend) error {
	if err := w.store.SaveBatch(ctx, r, string(backend)); err != nil {
		return fmt.Errorf("save batch: %w", err)
	}

	outcome := models.OutcomeSuccess
	details := fmt.Sprintf("total=%d succeeded=%d failed=%d", r.Total, r.Succeeded, r.Failed)
	if r.Failure != nil {
		outcome = models.OutcomeFailure
		details = r.Failure.Error()
	}
	inputs := struct {
		Source  string         `json:"source"`
		Backend oracle.Backend `json:"backend"`
	}{r.Source, backend}
	if _, err := w.Record(ctx, models.ActionBatchFinish, inputs, outcome, r.ID, details); err != nil {
		return fmt.Errorf("record batch: %w", err)
	}
	return nil
}

// write records best-effort; an audit failure never fails the pipeline.
// Records outlive the request that produced them, so ctx cancellation is ignored.
func (w *PDRWriter) write(ctx context.Context, action string, inputs interface{}, outcome, batchID, details string) {
	if _, err := w.Record(context.WithoutCancel(ctx), action, inputs, outcome, batchID, details); err != nil {
		w.logger.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

// hashInputs creates a SHA256 hash of the inputs for reproducibility.
func hashInputs(inputs interface{}) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
