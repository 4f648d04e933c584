package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	auditdomain "github.com/heraerp/heracore/internal/audit/domain"
	"github.com/heraerp/heracore/internal/config"
	obsmetrics "github.com/heraerp/heracore/internal/observability/metrics"
	"github.com/heraerp/heracore/internal/smartcode"
	"github.com/heraerp/heracore/internal/transaction/domain"
	"github.com/heraerp/heracore/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Registry   *smartcode.Registry
	AuditSvc   auditdomain.Service `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	registry   *smartcode.Registry
	auditSvc   auditdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("transaction.service"),
		genID:      p.GenID,
		registry:   p.Registry,
		auditSvc:   p.AuditSvc,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Post(ctx context.Context, req domain.PostRequest) (*domain.TransactionView, error) {
	if req.OrganizationID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	txnType := strings.TrimSpace(req.TransactionType)
	if txnType == "" {
		return nil, domain.ErrInvalidTransactionType
	}
	if len(req.Lines) == 0 {
		return nil, domain.ErrEmptyLines
	}

	headerCode, err := smartcode.Normalize(req.SmartCode)
	if err != nil {
		return nil, err
	}

	txnCode := strings.TrimSpace(req.TransactionCode)
	if txnCode == "" {
		txnCode = "TXN-" + uuid.NewString()
	}

	txnDate := req.TransactionDate
	if txnDate.IsZero() {
		txnDate = time.Now().UTC()
	}

	now := time.Now().UTC()
	header := domain.Transaction{
		ID:              s.genID.Generate(),
		OrganizationID:  req.OrganizationID,
		TransactionType: txnType,
		TransactionCode: txnCode,
		SmartCode:       headerCode,
		TransactionDate: txnDate.UTC(),
		SourceEntityID:  optionalID(req.SourceEntityID),
		TargetEntityID:  optionalID(req.TargetEntityID),
		TotalAmount:     req.TotalAmount,
		Status:          domain.StatusPosted,
		Metadata:        datatypes.JSONMap(req.Metadata),
		CreatedBy:       req.ActorID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	lines, err := s.buildLines(header, req.Lines, now)
	if err != nil {
		return nil, err
	}

	policy := s.registry.Resolve(headerCode)
	if err := reconcile(policy, header.TotalAmount, lines); err != nil {
		return nil, err
	}
	if err := checkGuardrail(policy, header.Metadata, lines); err != nil {
		if s.obsMetrics != nil {
			s.obsMetrics.RecordGuardrailRejection(txnType)
		}
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.insertHeader(ctx, tx, header); err != nil {
			return err
		}
		return s.insertLines(ctx, tx, lines)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateTransactionCode
		}
		return nil, err
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordTransactionPosted(txnType)
	}
	s.audit(ctx, req.OrganizationID, req.ActorID, "transaction.posted", header.ID, map[string]any{
		"transaction_type": txnType,
		"transaction_code": txnCode,
		"smart_code":       headerCode,
		"line_count":       len(lines),
	})

	return &domain.TransactionView{Transaction: header, Lines: lines}, nil
}

func (s *Service) Reverse(ctx context.Context, req domain.ReverseRequest) (*domain.ReverseResponse, error) {
	if req.OrganizationID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, domain.ErrInvalidReason
	}

	reversalCode, err := smartcode.Normalize(req.ReversalSmartCode)
	if err != nil {
		return nil, err
	}

	original, err := s.Get(ctx, req.OrganizationID, req.OriginalID)
	if err != nil {
		return nil, err
	}
	if original.Status == domain.StatusReversed {
		return nil, domain.ErrAlreadyReversed
	}

	policy := s.registry.Resolve(original.SmartCode)

	now := time.Now().UTC()
	reversal := domain.Transaction{
		ID:              s.genID.Generate(),
		OrganizationID:  req.OrganizationID,
		TransactionType: original.TransactionType,
		TransactionCode: original.TransactionCode + "-REV",
		SmartCode:       reversalCode,
		TransactionDate: now,
		SourceEntityID:  original.SourceEntityID,
		TargetEntityID:  original.TargetEntityID,
		TotalAmount:     reversedTotal(policy, original.TotalAmount),
		Status:          domain.StatusPosted,
		Metadata: datatypes.JSONMap{
			domain.MetaReversesTransactionID: original.ID.String(),
			domain.MetaReversalReason:        strings.TrimSpace(req.Reason),
		},
		CreatedBy: req.ActorID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	lines := make([]domain.TransactionLine, 0, len(original.Lines))
	for _, line := range original.Lines {
		lines = append(lines, reversedLine(policy, reversal, line, now, s.genID.Generate()))
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The posted -> reversed transition is a single-row compare-and-set;
		// exactly one of two racing reversals can win it.
		result := tx.WithContext(ctx).Exec(
			`UPDATE universal_transactions
			 SET status = ?, updated_at = ?
			 WHERE id = ? AND organization_id = ? AND status = ?`,
			domain.StatusReversed, now,
			original.ID, req.OrganizationID, domain.StatusPosted,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrAlreadyReversed
		}

		if err := s.insertHeader(ctx, tx, reversal); err != nil {
			return err
		}
		return s.insertLines(ctx, tx, lines)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateTransactionCode
		}
		return nil, err
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordTransactionReversed(original.TransactionType)
	}
	s.audit(ctx, req.OrganizationID, req.ActorID, "transaction.reversed", original.ID, map[string]any{
		"reversal_id":    reversal.ID.String(),
		"reason":         strings.TrimSpace(req.Reason),
		"lines_reversed": len(lines),
	})

	return &domain.ReverseResponse{
		Reversal:      domain.TransactionView{Transaction: reversal, Lines: lines},
		LinesReversed: len(lines),
	}, nil
}

func (s *Service) Get(ctx context.Context, orgID, id snowflake.ID) (*domain.TransactionView, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	var header domain.Transaction
	err := s.db.WithContext(ctx).
		First(&header, "id = ? AND organization_id = ?", id, orgID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Cross-org lookups surface the same error as a true miss.
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var lines []domain.TransactionLine
	err = s.db.WithContext(ctx).
		Where("transaction_id = ? AND organization_id = ?", id, orgID).
		Order("line_number ASC").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}

	return &domain.TransactionView{Transaction: header, Lines: lines}, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Transaction, error) {
	if req.OrganizationID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	query := s.db.WithContext(ctx).Where("organization_id = ?", req.OrganizationID)
	if t := strings.TrimSpace(req.TransactionType); t != "" {
		query = query.Where("transaction_type = ?", t)
	}
	if st := strings.TrimSpace(req.Status); st != "" {
		query = query.Where("status = ?", st)
	}

	limit := req.Limit
	if limit <= 0 || limit > 250 {
		limit = 50
	}

	var txns []domain.Transaction
	err := query.Order("transaction_date DESC, id DESC").Limit(limit).Offset(req.Offset).Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}

func (s *Service) buildLines(header domain.Transaction, inputs []domain.LineInput, now time.Time) ([]domain.TransactionLine, error) {
	used := map[int]bool{}
	for _, in := range inputs {
		if in.LineNumber > 0 {
			used[in.LineNumber] = true
		}
	}

	next := 1
	lines := make([]domain.TransactionLine, 0, len(inputs))
	for _, in := range inputs {
		lineCode := in.SmartCode
		if strings.TrimSpace(lineCode) == "" {
			lineCode = header.SmartCode
		}
		normalized, err := smartcode.Normalize(lineCode)
		if err != nil {
			return nil, err
		}

		number := in.LineNumber
		if number <= 0 {
			for used[next] {
				next++
			}
			number = next
			used[number] = true
		}

		lineType := strings.TrimSpace(in.LineType)
		if lineType == "" {
			lineType = "ITEM"
		}

		lines = append(lines, domain.TransactionLine{
			ID:             s.genID.Generate(),
			TransactionID:  header.ID,
			OrganizationID: header.OrganizationID,
			LineNumber:     number,
			LineType:       lineType,
			EntityID:       optionalID(in.EntityID),
			Quantity:       in.Quantity,
			UnitAmount:     in.UnitAmount,
			LineAmount:     in.LineAmount,
			SmartCode:      normalized,
			Metadata:       datatypes.JSONMap(in.Metadata),
			CreatedAt:      now,
		})
	}
	return lines, nil
}

func (s *Service) insertHeader(ctx context.Context, tx *gorm.DB, header domain.Transaction) error {
	return tx.WithContext(ctx).Exec(
		`INSERT INTO universal_transactions (
			id, organization_id, transaction_type, transaction_code, smart_code,
			transaction_date, source_entity_id, target_entity_id, total_amount,
			status, metadata, created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		header.ID,
		header.OrganizationID,
		header.TransactionType,
		header.TransactionCode,
		header.SmartCode,
		header.TransactionDate,
		header.SourceEntityID,
		header.TargetEntityID,
		header.TotalAmount,
		header.Status,
		header.Metadata,
		header.CreatedBy,
		header.CreatedAt,
		header.UpdatedAt,
	).Error
}

func (s *Service) insertLines(ctx context.Context, tx *gorm.DB, lines []domain.TransactionLine) error {
	for _, line := range lines {
		err := tx.WithContext(ctx).Exec(
			`INSERT INTO universal_transaction_lines (
				id, transaction_id, organization_id, line_number, line_type,
				entity_id, quantity, unit_amount, line_amount, smart_code,
				metadata, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			line.ID,
			line.TransactionID,
			line.OrganizationID,
			line.LineNumber,
			line.LineType,
			line.EntityID,
			line.Quantity,
			line.UnitAmount,
			line.LineAmount,
			line.SmartCode,
			line.Metadata,
			line.CreatedAt,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func reversedTotal(policy smartcode.Policy, total int64) int64 {
	if policy.Rule == config.RuleBalanced {
		return total
	}
	return -total
}

// reversedLine mirrors a line with semantics inverted per line type: balanced
// families swap debit and credit, everything else flips the sign.
func reversedLine(policy smartcode.Policy, reversal domain.Transaction, line domain.TransactionLine, now time.Time, id snowflake.ID) domain.TransactionLine {
	out := domain.TransactionLine{
		ID:             id,
		TransactionID:  reversal.ID,
		OrganizationID: line.OrganizationID,
		LineNumber:     line.LineNumber,
		LineType:       line.LineType,
		EntityID:       line.EntityID,
		Quantity:       line.Quantity,
		UnitAmount:     line.UnitAmount,
		LineAmount:     line.LineAmount,
		SmartCode:      line.SmartCode,
		Metadata:       line.Metadata,
		CreatedAt:      now,
	}

	if policy.Rule == config.RuleBalanced {
		switch strings.ToUpper(line.LineType) {
		case domain.LineTypeDebit:
			out.LineType = domain.LineTypeCredit
		case domain.LineTypeCredit:
			out.LineType = domain.LineTypeDebit
		}
		return out
	}

	out.Quantity = -line.Quantity
	out.UnitAmount = line.UnitAmount
	out.LineAmount = -line.LineAmount
	return out
}

func optionalID(id snowflake.ID) *snowflake.ID {
	if id == 0 {
		return nil
	}
	return &id
}

func (s *Service) audit(ctx context.Context, orgID, actorID snowflake.ID, action string, targetID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	actor := ""
	if actorID != 0 {
		actor = actorID.String()
	}
	if err := s.auditSvc.AuditLog(ctx, orgID, actor, action, "transaction", targetID.String(), metadata); err != nil {
		s.log.Warn("failed to write transaction audit log", zap.Error(err))
	}
}
