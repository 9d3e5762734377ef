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

package cli

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-nsm/pkg/attestation"
	"github.com/jeremyhahn/go-nsm/pkg/client"
	"github.com/jeremyhahn/go-nsm/pkg/digest"
	"github.com/jeremyhahn/go-nsm/pkg/nsm"
)

// closeTimeout bounds the session teardown call when an ephemeral
// remote device closes after the command context is already done.
const closeTimeout = 5 * time.Second

// Device is the command-facing view of a security module. Both the
// in-memory session and the remote client implement it, so commands
// never branch on where the device lives.
type Device interface {
	Describe(ctx context.Context) (*client.SessionResponse, error)
	Random(ctx context.Context, length int) ([]byte, error)
	PCRs(ctx context.Context) (*client.ListPCRsResponse, error)
	DescribePCR(ctx context.Context, slot int) (*client.PCRResponse, error)
	ExtendPCR(ctx context.Context, slot int, data []byte) (*client.PCRResponse, error)
	LockPCR(ctx context.Context, slot int) error
	LockPCRs(ctx context.Context, limit int) error
	LockedPCRs(ctx context.Context) (*client.LockedPCRsResponse, error)
	SetCertificate(ctx context.Context, slot int, data []byte) error
	Certificate(ctx context.Context, slot int) ([]byte, error)
	RemoveCertificate(ctx context.Context, slot int) error
	ListCertificates(ctx context.Context) (*client.ListCertificatesResponse, error)
	Attest(ctx context.Context, req *client.AttestationRequest) (*attestation.Document, error)
	AttestationDigest(ctx context.Context) ([]byte, error)
	Close() error
}

// openDevice builds a Device from the CLI configuration. Without
// --server the device is a fresh in-memory session that lives for this
// invocation only. With --server it is a session on the remote server:
// an existing one when --session names it, otherwise one created now
// and closed when the command finishes.
func openDevice(ctx context.Context, cfg *Config) (Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.IsRemote() {
		return openLocalDevice(cfg)
	}
	return openRemoteDevice(ctx, cfg)
}

// withDevice opens the configured device, runs fn, and closes the
// device before reporting any failure. Close runs before handleError
// because handleError exits the process, which would otherwise leave
// an ephemeral server session open.
func withDevice(cmd *cobra.Command, fn func(ctx context.Context, dev Device) error) {
	ctx := cmd.Context()
	dev, err := openDevice(ctx, getConfig())
	if err != nil {
		handleError(err)
		return
	}
	err = fn(ctx, dev)
	if closeErr := dev.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		handleError(err)
	}
}

// localDevice adapts an in-memory session to the Device interface,
// encoding results the same way the server does.
type localDevice struct {
	session *nsm.Session
}

func openLocalDevice(cfg *Config) (*localDevice, error) {
	params := &nsm.Params{}
	if cfg.DigestAlgorithm != "" {
		dig, err := digest.New(cfg.DigestAlgorithm)
		if err != nil {
			return nil, err
		}
		params.Digest = dig
	}
	session, err := nsm.New(params)
	if err != nil {
		return nil, err
	}
	printVerbose("opened in-memory device %s", session.ModuleID())
	return &localDevice{session: session}, nil
}

func (d *localDevice) Describe(_ context.Context) (*client.SessionResponse, error) {
	info, err := d.session.Describe()
	if err != nil {
		return nil, err
	}
	return deviceInfoResponse(info), nil
}

func (d *localDevice) Random(_ context.Context, length int) ([]byte, error) {
	return d.session.Random(length)
}

func (d *localDevice) PCRs(_ context.Context) (*client.ListPCRsResponse, error) {
	pcrs, err := d.session.PCRs()
	if err != nil {
		return nil, err
	}
	resp := &client.ListPCRsResponse{PCRs: make([]client.PCRResponse, len(pcrs))}
	for i, pcr := range pcrs {
		resp.PCRs[i] = pcrResponse(pcr)
	}
	return resp, nil
}

func (d *localDevice) DescribePCR(_ context.Context, slot int) (*client.PCRResponse, error) {
	pcr, err := d.session.DescribePCR(slot)
	if err != nil {
		return nil, err
	}
	out := pcrResponse(pcr)
	return &out, nil
}

func (d *localDevice) ExtendPCR(_ context.Context, slot int, data []byte) (*client.PCRResponse, error) {
	pcr, err := d.session.ExtendPCR(slot, data)
	if err != nil {
		return nil, err
	}
	out := pcrResponse(pcr)
	return &out, nil
}

func (d *localDevice) LockPCR(_ context.Context, slot int) error {
	return d.session.LockPCR(slot)
}

func (d *localDevice) LockPCRs(_ context.Context, limit int) error {
	return d.session.LockPCRs(limit)
}

func (d *localDevice) LockedPCRs(_ context.Context) (*client.LockedPCRsResponse, error) {
	flags, err := d.session.LockedFlags(nsm.PCRSlots)
	if err != nil {
		return nil, err
	}
	slots, err := d.session.LockedPCRs()
	if err != nil {
		return nil, err
	}
	if slots == nil {
		slots = []int{}
	}
	return &client.LockedPCRsResponse{
		Slots: slots,
		Flags: hex.EncodeToString(flags),
	}, nil
}

func (d *localDevice) SetCertificate(_ context.Context, slot int, data []byte) error {
	return d.session.SetCertificate(slot, data)
}

func (d *localDevice) Certificate(_ context.Context, slot int) ([]byte, error) {
	return d.session.DescribeCertificate(slot)
}

func (d *localDevice) RemoveCertificate(_ context.Context, slot int) error {
	return d.session.RemoveCertificate(slot)
}

func (d *localDevice) ListCertificates(_ context.Context) (*client.ListCertificatesResponse, error) {
	resp := &client.ListCertificatesResponse{Certificates: []client.CertificateInfo{}}
	for slot := 0; slot < nsm.CertificateSlots; slot++ {
		data, err := d.session.DescribeCertificate(slot)
		if err != nil {
			if nsm.ErrorCode(err) == nsm.CodeCertMissing {
				continue
			}
			return nil, err
		}
		resp.Certificates = append(resp.Certificates, client.CertificateInfo{
			Slot: slot,
			Size: len(data),
		})
	}
	return resp, nil
}

func (d *localDevice) Attest(_ context.Context, req *client.AttestationRequest) (*attestation.Document, error) {
	buildReq := &attestation.Request{}
	if req != nil {
		buildReq.UserData = req.UserData
		buildReq.PublicKey = req.PublicKey
		buildReq.Nonce = req.Nonce
	}
	return attestation.Build(d.session, buildReq)
}

func (d *localDevice) AttestationDigest(_ context.Context) ([]byte, error) {
	return d.session.AttestationDigest()
}

func (d *localDevice) Close() error {
	return d.session.Close()
}

func deviceInfoResponse(info nsm.DeviceInfo) *client.SessionResponse {
	locked := info.LockedPCRs
	if locked == nil {
		locked = []int{}
	}
	return &client.SessionResponse{
		ModuleID:         info.ModuleID,
		PCRSlots:         info.PCRSlots,
		CertificateSlots: info.CertificateSlots,
		LockedPCRs:       locked,
		Certificates:     info.Certificates,
		Digest:           info.Digest,
	}
}

func pcrResponse(pcr nsm.PCRValue) client.PCRResponse {
	return client.PCRResponse{
		Index:  pcr.Index,
		Value:  hex.EncodeToString(pcr.Value),
		Locked: pcr.Locked,
	}
}

// remoteDevice adapts a server session to the Device interface. When
// ephemeral is set the session was created for this invocation and is
// closed with the device; named sessions are left open for reuse.
type remoteDevice struct {
	client    *client.Client
	sessionID string
	ephemeral bool
}

func openRemoteDevice(ctx context.Context, cfg *Config) (*remoteDevice, error) {
	c, err := client.New(&client.Config{
		Address: cfg.Server,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}

	dev := &remoteDevice{client: c}
	if cfg.SessionID != "" {
		// Resolve the named session up front so a typo fails fast.
		if _, err := c.DescribeSession(ctx, cfg.SessionID); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("session %s: %w", cfg.SessionID, err)
		}
		dev.sessionID = cfg.SessionID
		printVerbose("using server session %s", dev.sessionID)
		return dev, nil
	}

	created, err := c.CreateSession(ctx)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	dev.sessionID = created.ModuleID
	dev.ephemeral = true
	printVerbose("created server session %s", dev.sessionID)
	return dev, nil
}

func (d *remoteDevice) Describe(ctx context.Context) (*client.SessionResponse, error) {
	return d.client.DescribeSession(ctx, d.sessionID)
}

func (d *remoteDevice) Random(ctx context.Context, length int) ([]byte, error) {
	return d.client.Random(ctx, d.sessionID, length)
}

func (d *remoteDevice) PCRs(ctx context.Context) (*client.ListPCRsResponse, error) {
	return d.client.PCRs(ctx, d.sessionID)
}

func (d *remoteDevice) DescribePCR(ctx context.Context, slot int) (*client.PCRResponse, error) {
	return d.client.DescribePCR(ctx, d.sessionID, slot)
}

func (d *remoteDevice) ExtendPCR(ctx context.Context, slot int, data []byte) (*client.PCRResponse, error) {
	return d.client.ExtendPCR(ctx, d.sessionID, slot, data)
}

func (d *remoteDevice) LockPCR(ctx context.Context, slot int) error {
	return d.client.LockPCR(ctx, d.sessionID, slot)
}

func (d *remoteDevice) LockPCRs(ctx context.Context, limit int) error {
	return d.client.LockPCRs(ctx, d.sessionID, limit)
}

func (d *remoteDevice) LockedPCRs(ctx context.Context) (*client.LockedPCRsResponse, error) {
	return d.client.LockedPCRs(ctx, d.sessionID)
}

func (d *remoteDevice) SetCertificate(ctx context.Context, slot int, data []byte) error {
	return d.client.SetCertificate(ctx, d.sessionID, slot, data)
}

func (d *remoteDevice) Certificate(ctx context.Context, slot int) ([]byte, error) {
	return d.client.Certificate(ctx, d.sessionID, slot)
}

func (d *remoteDevice) RemoveCertificate(ctx context.Context, slot int) error {
	return d.client.RemoveCertificate(ctx, d.sessionID, slot)
}

func (d *remoteDevice) ListCertificates(ctx context.Context) (*client.ListCertificatesResponse, error) {
	return d.client.ListCertificates(ctx, d.sessionID)
}

func (d *remoteDevice) Attest(ctx context.Context, req *client.AttestationRequest) (*attestation.Document, error) {
	return d.client.Attest(ctx, d.sessionID, req)
}

func (d *remoteDevice) AttestationDigest(ctx context.Context) ([]byte, error) {
	return d.client.AttestationDigest(ctx, d.sessionID)
}

func (d *remoteDevice) Close() error {
	if d.ephemeral {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := d.client.CloseSession(ctx, d.sessionID); err != nil {
			printVerbose("failed to close session %s: %v", d.sessionID, err)
		}
	}
	return d.client.Close()
}
