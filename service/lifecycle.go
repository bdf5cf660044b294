package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/Srijanomar3094/parser-server/model"
	"github.com/Srijanomar3094/parser-server/pkg/logger"
	"github.com/Srijanomar3094/parser-server/scoring"
)

// Scheduler schedules background parses. Enqueue returns once the
// parse is accepted; the parse itself runs later.
type Scheduler interface {
	Enqueue(ctx context.Context, contractID string) error
}

// Progress checkpoints persisted by a background parse, in order.
const (
	progressStarted   = 10
	progressExtracted = 40
	progressScored    = 80
	progressDone      = 100
)

// Lifecycle drives contract records from upload through extraction
// and scoring to a terminal state. A record is mutated only by its
// own parse.
type Lifecycle struct {
	store      ContractStore
	storage    FileStorage
	extractor  Extractor
	scheduler  Scheduler
	maxSize    int64
	stageDelay time.Duration

	inFlight sync.Map // contract ID -> struct{}, at-most-one parse per record
}

// LifecycleOption configures a Lifecycle.
type LifecycleOption func(*Lifecycle)

// WithScheduler sets how Submit schedules background parses. Without
// one, Submit falls back to spawning a goroutine per upload.
func WithScheduler(s Scheduler) LifecycleOption {
	return func(l *Lifecycle) { l.scheduler = s }
}

// WithMaxUploadSize overrides the 50 MiB upload limit.
func WithMaxUploadSize(size int64) LifecycleOption {
	return func(l *Lifecycle) { l.maxSize = size }
}

// WithStageDelay sets the simulated extraction latency between
// checkpoints. Zero removes the delays (tests).
func WithStageDelay(d time.Duration) LifecycleOption {
	return func(l *Lifecycle) { l.stageDelay = d }
}

func NewLifecycle(store ContractStore, storage FileStorage, extractor Extractor, opts ...LifecycleOption) *Lifecycle {
	l := &Lifecycle{
		store:      store,
		storage:    storage,
		extractor:  extractor,
		maxSize:    50 * 1024 * 1024,
		stageDelay: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SetScheduler installs the scheduler after construction. Schedulers
// run lifecycle parses, so the two are built in that order.
func (l *Lifecycle) SetScheduler(s Scheduler) {
	l.scheduler = s
}

// Submit validates and stores an uploaded file, creates a pending
// record and schedules its parse. It returns as soon as the record
// exists; callers observe progress via GetStatus.
func (l *Lifecycle) Submit(ctx context.Context, filename string, size int64, file io.Reader) (*model.Contract, error) {
	if size > l.maxSize {
		return nil, ErrFileTooLarge
	}
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return nil, ErrUnsupportedType
	}

	id := uuid.New().String()
	objectName := id + ".pdf"

	// Sniff the real content type for storage metadata. Validation is
	// by extension only; a mismatched body is not rejected here.
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	contentType := mimetype.Detect(head[:n]).String()
	if contentType == "application/octet-stream" {
		contentType = "application/pdf"
	}
	reader := io.MultiReader(bytes.NewReader(head[:n]), file)

	if err := l.storage.Save(ctx, objectName, reader, size, contentType); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	contract := model.NewContract(id, objectName, SanitizeFilename(filename))
	if err := l.store.Create(ctx, contract); err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}

	if l.scheduler == nil {
		go l.Run(context.WithoutCancel(ctx), contract.ID)
		return contract, nil
	}

	if err := l.scheduler.Enqueue(ctx, contract.ID); err != nil {
		// The record exists but will never be parsed; surface that
		// through the record itself rather than failing the upload.
		logger.Error(ctx, "failed to schedule parse", "contract_id", contract.ID, "error", err)
		contract.Status = model.StatusFailed
		contract.ErrorMessage = fmt.Sprintf("schedule parse: %v", err)
		if uerr := l.store.Update(ctx, contract); uerr != nil {
			logger.Error(ctx, "failed to record schedule failure", "contract_id", contract.ID, "error", uerr)
		}
	}

	return contract, nil
}

// Run executes the background parse for one record. It is the sole
// mutator of a record after creation and never propagates failures;
// any error ends up in the record as status=failed.
func (l *Lifecycle) Run(ctx context.Context, contractID string) {
	if _, loaded := l.inFlight.LoadOrStore(contractID, struct{}{}); loaded {
		logger.Warn(ctx, "parse already running", "contract_id", contractID)
		return
	}
	defer l.inFlight.Delete(contractID)

	ctx = context.WithValue(ctx, logger.ContractIDKey, contractID)

	contract, err := l.store.Get(ctx, contractID)
	if err != nil {
		logger.Error(ctx, "failed to load contract for parse", "error", err)
		return
	}
	if contract.Status != model.StatusPending {
		// Re-delivery or duplicate schedule; the first parse won.
		logger.Warn(ctx, "skipping parse, record not pending", "status", contract.Status)
		return
	}

	if err := l.parse(ctx, contract); err != nil {
		logger.Error(ctx, "parse failed", "error", err)
		contract.Status = model.StatusFailed
		contract.ErrorMessage = err.Error()
		if uerr := l.store.Update(ctx, contract); uerr != nil {
			logger.Error(ctx, "failed to persist parse failure", "error", uerr)
		}
		return
	}

	logger.Info(ctx, "parse completed", "score", contract.Score, "gaps", len(contract.Gaps))
}

func (l *Lifecycle) parse(ctx context.Context, contract *model.Contract) error {
	contract.Status = model.StatusProcessing
	contract.Progress = progressStarted
	if err := l.store.Update(ctx, contract); err != nil {
		return fmt.Errorf("persist processing checkpoint: %w", err)
	}

	l.sleep(ctx)
	contract.Progress = progressExtracted
	if err := l.store.Update(ctx, contract); err != nil {
		return fmt.Errorf("persist extraction checkpoint: %w", err)
	}

	data, err := l.extractor.Extract(ctx, contract.ObjectName)
	if err != nil {
		return fmt.Errorf("extract document: %w", err)
	}
	contract.Parties = data.Parties
	contract.AccountInfo = data.AccountInfo
	contract.FinancialDetails = data.FinancialDetails
	contract.PaymentStructure = data.PaymentStructure
	contract.RevenueClassification = data.RevenueClassification
	contract.SLA = data.SLA

	l.sleep(ctx)
	contract.Score, contract.Gaps = scoring.Evaluate(scoring.Extracted{
		Parties:          contract.Parties,
		AccountInfo:      contract.AccountInfo,
		FinancialDetails: contract.FinancialDetails,
		PaymentStructure: contract.PaymentStructure,
		SLA:              contract.SLA,
	})
	contract.Progress = progressScored
	if err := l.store.Update(ctx, contract); err != nil {
		return fmt.Errorf("persist score checkpoint: %w", err)
	}

	contract.Status = model.StatusCompleted
	contract.Progress = progressDone
	if err := l.store.Update(ctx, contract); err != nil {
		return fmt.Errorf("persist completion: %w", err)
	}
	return nil
}

func (l *Lifecycle) sleep(ctx context.Context) {
	if l.stageDelay <= 0 {
		return
	}
	timer := time.NewTimer(l.stageDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// StatusInfo is the read-only status projection of a record.
type StatusInfo struct {
	Status   model.Status
	Progress int
	Error    string
}

// GetStatus returns the status projection for a record.
func (l *Lifecycle) GetStatus(ctx context.Context, contractID string) (*StatusInfo, error) {
	contract, err := l.store.Get(ctx, contractID)
	if err != nil {
		return nil, err
	}
	return &StatusInfo{
		Status:   contract.Status,
		Progress: contract.Progress,
		Error:    contract.ErrorMessage,
	}, nil
}

// GetDetail returns the full record once processing finished,
// ErrNotCompleted before that.
func (l *Lifecycle) GetDetail(ctx context.Context, contractID string) (*model.Contract, error) {
	contract, err := l.store.Get(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract.Status != model.StatusCompleted {
		return nil, ErrNotCompleted
	}
	return contract, nil
}

// ContractPage is one page of the contract listing.
type ContractPage struct {
	Items []*model.Contract
	Page  int
	Pages int
	Count int
}

// List pages through records, newest upload first, optionally
// filtered by status. Page numbers out of range clamp to the nearest
// valid page; pageSize is capped at 100.
func (l *Lifecycle) List(ctx context.Context, status model.Status, page, pageSize int) (*ContractPage, error) {
	if pageSize <= 0 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}
	if page <= 0 {
		page = 1
	}

	count, err := l.store.Count(ctx, status)
	if err != nil {
		return nil, err
	}

	pages := (count + pageSize - 1) / pageSize
	if pages == 0 {
		pages = 1
	}
	if page > pages {
		page = pages
	}

	items, err := l.store.List(ctx, status, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, err
	}

	return &ContractPage{
		Items: items,
		Page:  page,
		Pages: pages,
		Count: count,
	}, nil
}

// OpenFile returns the stored PDF bytes and the record they belong
// to. ErrNotFound covers both unknown records and missing files.
func (l *Lifecycle) OpenFile(ctx context.Context, contractID string) (io.ReadCloser, *model.Contract, error) {
	contract, err := l.store.Get(ctx, contractID)
	if err != nil {
		return nil, nil, err
	}
	if contract.ObjectName == "" {
		return nil, nil, ErrNotFound
	}

	reader, err := l.storage.Open(ctx, contract.ObjectName)
	if err != nil {
		return nil, nil, err
	}
	return reader, contract, nil
}

// SanitizeFilename strips path components and characters unsafe for a
// stored filename, keeping letters, digits, dash, underscore and dot.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "_")

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-', r == '_', r == '.':
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" || cleaned == "." || cleaned == ".." {
		return "upload.pdf"
	}
	return cleaned
}
