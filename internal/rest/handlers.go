// Copyright (c) 2026 Jeremy Hahn
// Copyright (c) 2026 Automate The Things, LLC
//
// This file is part of go-nsm.
//
// go-nsm is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package rest

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jeremyhahn/go-nsm/pkg/attestation"
	"github.com/jeremyhahn/go-nsm/pkg/digest"
	"github.com/jeremyhahn/go-nsm/pkg/health"
	"github.com/jeremyhahn/go-nsm/pkg/logging"
	"github.com/jeremyhahn/go-nsm/pkg/metrics"
	"github.com/jeremyhahn/go-nsm/pkg/nsm"
)

// HealthChecker provides health check status for the service.
type HealthChecker interface {
	Live(ctx context.Context) health.CheckResult
	Ready(ctx context.Context) []health.CheckResult
	Startup(ctx context.Context) health.CheckResult
}

// HandlerContext holds the dependencies shared by all HTTP handlers.
type HandlerContext struct {
	Version       string
	Registry      *Registry
	HealthChecker HealthChecker

	logger    *logging.Logger
	algorithm string
}

// NewHandlerContext creates a handler context. algorithm labels the
// operation metrics; empty selects the default digest algorithm.
func NewHandlerContext(version string, registry *Registry, logger *logging.Logger, algorithm string) *HandlerContext {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	if algorithm == "" {
		algorithm = digest.AlgorithmMix256
	}
	return &HandlerContext{
		Version:   version,
		Registry:  registry,
		logger:    logger,
		algorithm: algorithm,
	}
}

// SetHealthChecker sets the health checker used by the probe endpoints.
func (h *HandlerContext) SetHealthChecker(checker HealthChecker) {
	h.HealthChecker = checker
}

// HealthHandler handles basic health check requests.
func (h *HandlerContext) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{Status: "healthy", Version: h.Version}, http.StatusOK)
}

// record tracks one device operation in the metrics registry.
func (h *HandlerContext) record(op string, start time.Time, err error) {
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
		if code := nsm.ErrorCode(err); code != nsm.CodeOK && code != nsm.CodeUnknown {
			metrics.RecordError(op, h.algorithm, code.String())
		}
	}
	metrics.RecordOperation(op, h.algorithm, status, time.Since(start).Seconds())
}

// fail records a failed operation and writes the error response.
func (h *HandlerContext) fail(w http.ResponseWriter, op string, start time.Time, err error) {
	h.record(op, start, err)
	handleError(w, err)
}

func sessionID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

func slotParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "slot")
	slot, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", nsm.ErrInvalidSlot, raw)
	}
	return slot, nil
}

func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// decodeOptionalBody decodes a request body, treating an empty body as
// the zero value.
func decodeOptionalBody(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
}

// CreateSessionHandler opens a new device session.
func (h *HandlerContext) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	session, err := h.Registry.Create()
	if err != nil {
		h.fail(w, metrics.OpSessionCreate, start, err)
		return
	}

	locked, release, err := h.Registry.Acquire(session.ModuleID())
	if err != nil {
		h.fail(w, metrics.OpSessionCreate, start, err)
		return
	}
	defer release()

	info, err := locked.Describe()
	if err != nil {
		h.fail(w, metrics.OpSessionCreate, start, err)
		return
	}

	h.logger.Info("Session created", "module_id", info.ModuleID)
	h.record(metrics.OpSessionCreate, start, nil)
	writeJSON(w, newSessionResponse(info), http.StatusCreated)
}

// ListSessionsHandler lists every open device session.
func (h *HandlerContext) ListSessionsHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	infos := h.Registry.List()
	sessions := make([]SessionResponse, 0, len(infos))
	for _, info := range infos {
		sessions = append(sessions, newSessionResponse(info))
	}

	h.record(metrics.OpDescribe, start, nil)
	writeJSON(w, ListSessionsResponse{Sessions: sessions}, http.StatusOK)
}

// GetSessionHandler describes one device session.
func (h *HandlerContext) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	session, release, err := h.Registry.Acquire(sessionID(r))
	if err != nil {
		h.fail(w, metrics.OpDescribe, start, err)
		return
	}
	defer release()

	info, err := session.Describe()
	if err != nil {
		h.fail(w, metrics.OpDescribe, start, err)
		return
	}

	h.record(metrics.OpDescribe, start, nil)
	writeJSON(w, newSessionResponse(info), http.StatusOK)
}

// CloseSessionHandler closes a device session and removes it from the
// registry. Closing an unknown session returns 404.
func (h *HandlerContext) CloseSessionHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := sessionID(r)

	if err := h.Registry.Close(id); err != nil {
		h.fail(w, metrics.OpSessionClose, start, err)
		return
	}

	h.logger.Info("Session closed", "module_id", id)
	h.record(metrics.OpSessionClose, start, nil)
	writeJSON(w, SuccessResponse{Success: true, Message: "session closed"}, http.StatusOK)
}

// RandomHandler draws random bytes from the device.
func (h *HandlerContext) RandomHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req RandomRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, metrics.OpRandom, start, err)
		return
	}

	session, release, err := h.Registry.Acquire(sessionID(r))
	if err != nil {
		h.fail(w, metrics.OpRandom, start, err)
		return
	}
	defer release()

	data, err := session.Random(req.Length)
	if err != nil {
		h.fail(w, metrics.OpRandom, start, err)
		return
	}

	metrics.AddRandomBytes(len(data))
	h.record(metrics.OpRandom, start, nil)
	writeJSON(w, RandomResponse{
		Random: hex.EncodeToString(data),
		Length: len(data),
	}, http.StatusOK)
}

// ListPCRsHandler returns a snapshot of the full measurement bank.
func (h *HandlerContext) ListPCRsHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	session, release, err := h.Registry.Acquire(sessionID(r))
	if err != nil {
		h.fail(w, metrics.OpDescribePCR, start, err)
		return
	}
	defer release()

	pcrs, err := session.PCRs()
	if err != nil {
		h.fail(w, metrics.OpDescribePCR, start, err)
		return
	}

	values := make([]PCRResponse, 0, len(pcrs))
	for _, pcr := range pcrs {
		values = append(values, newPCRResponse(pcr))
	}

	h.record(metrics.OpDescribePCR, start, nil)
	writeJSON(w, ListPCRsResponse{PCRs: values}, http.StatusOK)
}

// DescribePCRHandler reads one measurement register.
func (h *HandlerContext) DescribePCRHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	slot, err := slotParam(r)
	if err != nil {
		h.fail(w, metrics.OpDescribePCR, start, err)
		return
	}

	session, release, err := h.Registry.Acquire(sessionID(r))
	if err != nil {
		h.fail(w, metrics.OpDescribePCR, start, err)
		return
	}
	defer release()

	pcr, err := session.DescribePCR(slot)
	if err != nil {
		h.fail(w, metrics.OpDescribePCR, start, err)
		return
	}

	h.record(metrics.OpDescribePCR, start, nil)
	writeJSON(w, newPCRResponse(pcr), http.StatusOK)
}

// ExtendPCRHandler folds data into a measurement register and returns
// the new value.
func (h *HandlerContext) ExtendPCRHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	slot, err := slotParam(r)
	if err != nil {
		h.fail(w, metrics.OpExtendPCR, start, err)
		return
	}

	var req ExtendPCRRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, metrics.OpExtendPCR, start, err)
		return
	}

	session, release, err := h.Registry.Acquire(sessionID(r))
	if err != nil {
		h.fail(w, metrics.OpExtendPCR, start, err)
		return
	}
	defer release()

	pcr, err := session.ExtendPCR(slot, req.Data)
	if err != nil {
		h.fail(w, metrics.OpExtendPCR, start, err)
		return
	}

	h.record(metrics.OpExtendPCR, start, nil)
	writeJSON(w, newPCRResponse(pcr), http.StatusOK)
}

// LockPCRHandler locks one measurement register.
func (h *HandlerContext) LockPCRHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	slot, err := slotParam(r)
	if err != nil {
		h.fail(w, metrics.OpLockPCR, start, err)
		return
	}

	session, release, err := h.Registry.Acquire(sessionID(r))
	if err != nil {
		h.fail(w, metrics.OpLockPCR, start, err)
		return
	}
	defer release()

	if err := session.LockPCR(slot); err != nil {
		h.fail(w, metrics.OpLockPCR, start, err)
		return
	}

	h.record(metrics.OpLockPCR, start, nil)
	writeJSON(w, SuccessResponse{
		Success: true,
		Message: fmt.Sprintf("pcr %d locked", slot),
	}, http.StatusOK)
}

// LockRangeHandler locks every measurement register below the requested
// bound.
func (h *HandlerContext) LockRangeHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req LockRangeRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, metrics.OpLockPCRs, start, err)
		return
	}

	session, release, err := h.Registry.Acquire(sessionID(r))
	if err != nil {
		h.fail(w, metrics.OpLockPCRs, start, err)
		return
	}
	defer release()

	if err := session.LockPCRs(req.Range); err != nil {
		h.fail(w, metrics.OpLockPCRs, start, err)
		return
	}

	h.record(metrics.OpLockPCRs, start, nil)
	writeJSON(w, SuccessResponse{
		Success: true,
		Message: fmt.Sprintf("pcrs below %d locked", req.Range),
	}, http.StatusOK)
}

// LockedPCRsHandler reports the lock state of the measurement bank. The
// optional length query parameter sets the flag count; it defaults to
// the register count.
func (h *HandlerContext) LockedPCRsHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	length := nsm.PCRSlots
	if raw := r.URL.Query().Get("length"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.fail(w, metrics.OpDescribe, start,
				fmt.Errorf("%w: length %q", ErrInvalidRequest, raw))
			return
		}
		length = n
	}

	session, release, err := h.Registry.Acquire(sessionID(r))
	if err != nil {
		h.fail(w, metrics.OpDescribe, start, err)
		return
	}
	defer release()

	flags, err := session.LockedFlags(length)
	if err != nil {
		h.fail(w, metrics.OpDescribe, start, err)
		return
	}
	slots, err := session.LockedPCRs()
	if err != nil {
		h.fail(w, metrics.OpDescribe, start, err)
		return
	}
	if slots == nil {
		slots = []int{}
	}

	h.record(metrics.OpDescribe, start, nil)
	writeJSON(w, LockedPCRsResponse{
		Slots: slots,
		Flags: hex.EncodeToString(flags),
	}, http.StatusOK)
}

// SetCertificateHandler stores certificate data in a slot.
func (h *HandlerContext) SetCertificateHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	slot, err := slotParam(r)
	if err != nil {
		h.fail(w, metrics.OpSetCert, start, err)
		return
	}

	var req CertificateRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, metrics.OpSetCert, start, err)
		return
	}

	session, release, err := h.Registry.Acquire(sessionID(r))
	if err != nil {
		h.fail(w, metrics.OpSetCert, start, err)
		return
	}
	defer release()

	if err := session.SetCertificate(slot, req.Data); err != nil {
		h.fail(w, metrics.OpSetCert, start, err)
		return
	}

	h.record(metrics.OpSetCert, start, nil)
	writeJSON(w, CertificateInfo{Slot: slot, Size: len(req.Data)}, http.StatusOK)
}

// GetCertificateHandler reads certificate data from a slot.
func (h *HandlerContext) GetCertificateHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	slot, err := slotParam(r)
	if err != nil {
		h.fail(w, metrics.OpDescribeCert, start, err)
		return
	}

	session, release, err := h.Registry.Acquire(sessionID(r))
	if err != nil {
		h.fail(w, metrics.OpDescribeCert, start, err)
		return
	}
	defer release()

	data, err := session.DescribeCertificate(slot)
	if err != nil {
		h.fail(w, metrics.OpDescribeCert, start, err)
		return
	}

	h.record(metrics.OpDescribeCert, start, nil)
	writeJSON(w, CertificateResponse{
		Slot: slot,
		Data: data,
		Size: len(data),
	}, http.StatusOK)
}

// RemoveCertificateHandler clears a certificate slot.
func (h *HandlerContext) RemoveCertificateHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	slot, err := slotParam(r)
	if err != nil {
		h.fail(w, metrics.OpRemoveCert, start, err)
		return
	}

	session, release, err := h.Registry.Acquire(sessionID(r))
	if err != nil {
		h.fail(w, metrics.OpRemoveCert, start, err)
		return
	}
	defer release()

	if err := session.RemoveCertificate(slot); err != nil {
		h.fail(w, metrics.OpRemoveCert, start, err)
		return
	}

	h.record(metrics.OpRemoveCert, start, nil)
	writeJSON(w, SuccessResponse{
		Success: true,
		Message: fmt.Sprintf("certificate %d removed", slot),
	}, http.StatusOK)
}

// ListCertificatesHandler lists occupied certificate slots.
func (h *HandlerContext) ListCertificatesHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	session, release, err := h.Registry.Acquire(sessionID(r))
	if err != nil {
		h.fail(w, metrics.OpDescribeCert, start, err)
		return
	}
	defer release()

	certs := make([]CertificateInfo, 0, nsm.CertificateSlots)
	for slot := 0; slot < nsm.CertificateSlots; slot++ {
		data, err := session.DescribeCertificate(slot)
		if errors.Is(err, nsm.ErrCertMissing) {
			continue
		}
		if err != nil {
			h.fail(w, metrics.OpDescribeCert, start, err)
			return
		}
		certs = append(certs, CertificateInfo{Slot: slot, Size: len(data)})
	}

	h.record(metrics.OpDescribeCert, start, nil)
	writeJSON(w, ListCertificatesResponse{Certificates: certs}, http.StatusOK)
}

// AttestHandler builds an attestation document over the current device
// state. The request body is optional; its fields are bound into the
// document digest when present.
func (h *HandlerContext) AttestHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req AttestationRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		h.fail(w, metrics.OpAttest, start, err)
		return
	}

	session, release, err := h.Registry.Acquire(sessionID(r))
	if err != nil {
		h.fail(w, metrics.OpAttest, start, err)
		return
	}
	defer release()

	doc, err := attestation.Build(session, &attestation.Request{
		UserData:  req.UserData,
		PublicKey: req.PublicKey,
		Nonce:     req.Nonce,
	})
	if err != nil {
		h.fail(w, metrics.OpAttest, start, err)
		return
	}

	h.record(metrics.OpAttest, start, nil)
	writeJSON(w, doc, http.StatusOK)
}

// DigestHandler returns the aggregate digest over the measurement bank.
func (h *HandlerContext) DigestHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	session, release, err := h.Registry.Acquire(sessionID(r))
	if err != nil {
		h.fail(w, metrics.OpAttest, start, err)
		return
	}
	defer release()

	sum, err := session.AttestationDigest()
	if err != nil {
		h.fail(w, metrics.OpAttest, start, err)
		return
	}

	h.record(metrics.OpAttest, start, nil)
	writeJSON(w, DigestResponse{Digest: hex.EncodeToString(sum)}, http.StatusOK)
}
