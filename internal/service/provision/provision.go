package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmehdipour/qmail/internal/audit"
	"github.com/jmehdipour/qmail/internal/locker"
	"github.com/jmehdipour/qmail/internal/mailbox"
	"github.com/jmehdipour/qmail/internal/metrics"
	"github.com/jmehdipour/qmail/internal/model"
	"github.com/jmehdipour/qmail/internal/serial"
	"github.com/jmehdipour/qmail/internal/util"
	"go.uber.org/zap"
)

var ErrInvalidRegistration = errors.New("invalid registration")

const auditTimeout = 5 * time.Second

// Minter is satisfied by *locker.Poller.
type Minter interface {
	Mint(ctx context.Context) locker.Result
}

type Options struct {
	DefaultDescription string
	DefaultInboxFee    string
	Logger             *zap.Logger
	Now                func() time.Time
}

// Service issues mailbox tokens. Locker failures degrade to the fallback key
// and never fail a registration; audit failures are logged and dropped.
type Service struct {
	minter  Minter
	serials serial.Allocator
	sink    audit.Sink

	defaultDescription string
	defaultInboxFee    string
	now                func() time.Time
	log                *zap.Logger
}

// New constructs the provisioning service. sink may be nil.
func New(minter Minter, serials serial.Allocator, sink audit.Sink, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		minter:             minter,
		serials:            serials,
		sink:               sink,
		defaultDescription: opts.DefaultDescription,
		defaultInboxFee:    opts.DefaultInboxFee,
		now:                opts.Now,
		log:                opts.Logger,
	}
}

// Provision validates the registration, allocates a serial, mints a locker
// key, encodes the mailbox token and emits the audit line.
func (s *Service) Provision(ctx context.Context, reg model.Registration) (model.ProvisionResult, error) {
	reg, err := s.normalize(reg)
	if err != nil {
		return model.ProvisionResult{}, err
	}

	now := s.now()
	id := util.NewID(now)

	n, err := s.serials.Next(ctx, id)
	if err != nil {
		return model.ProvisionResult{}, fmt.Errorf("allocate serial: %w", err)
	}
	serialNumber := serial.Encode(n)

	lk := s.minter.Mint(ctx)
	tier := model.ClassifyTier(reg.AmountPaid)

	rec := mailbox.Record{
		LockerKey:    lk.LockerKey,
		SerialNumber: serialNumber,
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		Description:  reg.Description,
		InboxFee:     reg.InboxFee,
		Class:        tier.String(),
	}

	token, err := mailbox.EncodeToken(rec)
	if err != nil {
		// the locker package validates transmit codes; reaching this is a bug
		return model.ProvisionResult{}, fmt.Errorf("encode mailbox token: %w", err)
	}

	metrics.ProvisionsTotal.WithLabelValues(lk.Outcome).Inc()
	s.log.Info("mailbox token issued",
		zap.String("registration_id", id),
		zap.String("serial", serialNumber),
		zap.String("class", tier.String()),
		zap.String("locker_outcome", lk.Outcome),
		zap.String("daemon", lk.Daemon),
	)

	s.emit(ctx, model.AuditEvent{
		ID:           id,
		Timestamp:    now,
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		LockerKey:    lk.LockerKey,
		Token:        token,
		SerialNumber: serialNumber,
		Class:        tier,
		AmountPaid:   reg.AmountPaid.String(),
		Fallback:     lk.Fallback(),
	})

	return model.ProvisionResult{
		Success:        true,
		MailboxToken:   token,
		RegistrationID: id,
	}, nil
}

// emit outlives the request context so an abandoned request is still audited.
func (s *Service) emit(ctx context.Context, ev model.AuditEvent) {
	if s.sink == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()

	if err := s.sink.Append(ctx, ev); err != nil {
		s.log.Warn("audit emission failed; token still issued",
			zap.String("registration_id", ev.ID),
			zap.Error(err),
		)
	}
}

func (s *Service) normalize(reg model.Registration) (model.Registration, error) {
	reg.FirstName = util.NormalizeName(reg.FirstName)
	reg.LastName = util.NormalizeName(reg.LastName)

	if reg.Description == "" {
		reg.Description = s.defaultDescription
	}
	if reg.InboxFee == "" {
		reg.InboxFee = s.defaultInboxFee
	}

	if reg.AmountPaid.IsNegative() {
		return reg, fmt.Errorf("%w: amount_paid is negative", ErrInvalidRegistration)
	}

	fields := []struct{ name, value string }{
		{"first_name", reg.FirstName},
		{"last_name", reg.LastName},
		{"description", reg.Description},
		{"inbox_fee", reg.InboxFee},
	}
	for _, f := range fields {
		if err := mailbox.CheckValue(f.value); err != nil {
			return reg, fmt.Errorf("%w: %s: %v", ErrInvalidRegistration, f.name, err)
		}
	}

	return reg, nil
}
