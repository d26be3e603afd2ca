package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"pm-workorder-backend/internal/model"
)

func (s *gormStore) CreateDecision(ctx context.Context, d *model.Decision) error {
	if err := s.db.WithContext(ctx).Create(d).Error; err != nil {
		return fmt.Errorf("failed to create decision for machine %d: %w", d.MachineID, err)
	}
	return nil
}

func (s *gormStore) GetDecision(ctx context.Context, id uint) (*model.Decision, error) {
	var d model.Decision
	if err := s.db.WithContext(ctx).Preload("Machine").First(&d, id).Error; err != nil {
		return nil, wrapNotFound(err, fmt.Sprintf("decision %d", id))
	}
	return &d, nil
}

func (s *gormStore) RecentDecisions(ctx context.Context, limit int, machineID uint) ([]model.Decision, error) {
	if limit <= 0 {
		limit = 10
	}
	q := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit)
	if machineID != 0 {
		q = q.Where("machine_id = ?", machineID)
	}
	var decisions []model.Decision
	if err := q.Find(&decisions).Error; err != nil {
		return nil, fmt.Errorf("failed to list recent decisions: %w", err)
	}
	return decisions, nil
}

// MarkDecisionExecuted flips auto_executed to true and reports whether this
// call was the one that did it. The WHERE guard makes the flip happen at most
// once even if two executors race past the application-level lock.
func (s *gormStore) MarkDecisionExecuted(ctx context.Context, id uint) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.Decision{}).
		Where("id = ? AND auto_executed = ?", id, false).
		Update("auto_executed", true)
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark decision %d executed: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *gormStore) DecisionStatistics(ctx context.Context) (*DecisionStats, error) {
	stats := &DecisionStats{
		ByDecision: make(map[string]int64),
		ByProvider: make(map[string]int64),
	}

	if err := s.db.WithContext(ctx).Model(&model.Decision{}).Count(&stats.TotalDecisions).Error; err != nil {
		return nil, fmt.Errorf("failed to count decisions: %w", err)
	}
	if stats.TotalDecisions == 0 {
		return stats, nil
	}

	type countRow struct {
		Name  string
		Count int64
	}

	var byDecision []countRow
	err := s.db.WithContext(ctx).Model(&model.Decision{}).
		Select("decision AS name, COUNT(*) AS count").
		Group("decision").
		Scan(&byDecision).Error
	if err != nil {
		return nil, fmt.Errorf("failed to group decisions by action: %w", err)
	}
	for _, row := range byDecision {
		stats.ByDecision[row.Name] = row.Count
	}

	var byProvider []countRow
	err = s.db.WithContext(ctx).Model(&model.Decision{}).
		Select("llm_provider AS name, COUNT(*) AS count").
		Group("llm_provider").
		Scan(&byProvider).Error
	if err != nil {
		return nil, fmt.Errorf("failed to group decisions by provider: %w", err)
	}
	for _, row := range byProvider {
		stats.ByProvider[row.Name] = row.Count
	}

	var avg sql.NullFloat64
	row := s.db.WithContext(ctx).Model(&model.Decision{}).Select("AVG(confidence)").Row()
	if err := row.Scan(&avg); err != nil {
		return nil, fmt.Errorf("failed to average decision confidence: %w", err)
	}
	if avg.Valid {
		stats.AverageConfidence = math.Round(avg.Float64*100) / 100
	}

	err = s.db.WithContext(ctx).Model(&model.Decision{}).
		Where("requires_review = ?", true).
		Count(&stats.RequiringReview).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count decisions requiring review: %w", err)
	}

	err = s.db.WithContext(ctx).Model(&model.Decision{}).
		Where("auto_executed = ?", true).
		Count(&stats.AutoExecuted).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count auto-executed decisions: %w", err)
	}
	stats.ManualReview = stats.TotalDecisions - stats.AutoExecuted

	return stats, nil
}
