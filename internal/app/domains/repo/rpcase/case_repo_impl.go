package rpcase

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"alertx/internal/app/domains/entity/etcase"
	"alertx/internal/app/pkg/errorx"
	"alertx/internal/common/entity"
)

// CaseRepositoryImpl Case 仓储实现（GORM，SQLite / MySQL / PostgreSQL）
type CaseRepositoryImpl struct {
	db *gorm.DB
}

// NewCaseRepository 创建 GORM 仓储实例
func NewCaseRepository(db *gorm.DB) CaseRepository {
	return &CaseRepositoryImpl{db: db}
}

// AutoMigrate 建表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&entity.Case{}, &entity.CaseTimelineEntry{}, &entity.Profile{})
}

// Create 同一事务写入 Case 和初始时间线
func (r *CaseRepositoryImpl) Create(ctx context.Context, c *etcase.Case) error {
	po, err := toPO(c)
	if err != nil {
		return err
	}
	entries := timelinePOs(c, c.Timeline)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(po).Error; err != nil {
			return fmt.Errorf("insert case: %w", err)
		}
		if len(entries) > 0 {
			if err := tx.Create(&entries).Error; err != nil {
				return fmt.Errorf("insert timeline: %w", err)
			}
		}
		return nil
	})
}

// Update 更新 Case 行并追加时间线，历史条目只读
func (r *CaseRepositoryImpl) Update(ctx context.Context, c *etcase.Case, appended ...etcase.TimelineEntry) error {
	po, err := toPO(c)
	if err != nil {
		return err
	}
	entries := timelinePOs(c, appended)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entity.Case{}).
			Where("id = ?", c.ID).
			Updates(map[string]interface{}{
				"triage":      po.Triage,
				"assignment":  po.Assignment,
				"latitude":    po.Latitude,
				"longitude":   po.Longitude,
				"status":      po.Status,
				"updated_at":  po.UpdatedAt,
				"terminal_at": po.TerminalAt,
			})
		if res.Error != nil {
			return fmt.Errorf("update case: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return errorx.ErrCaseNotFound
		}
		if len(entries) > 0 {
			if err := tx.Create(&entries).Error; err != nil {
				return fmt.Errorf("append timeline: %w", err)
			}
		}
		return nil
	})
}

// GetByID 查询 Case 及完整时间线
func (r *CaseRepositoryImpl) GetByID(ctx context.Context, caseID string) (*etcase.Case, error) {
	var po entity.Case
	err := r.db.WithContext(ctx).Where("id = ?", caseID).First(&po).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.ErrCaseNotFound
		}
		return nil, err
	}

	var timeline []entity.CaseTimelineEntry
	if err := r.db.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("seq ASC").
		Find(&timeline).Error; err != nil {
		return nil, err
	}
	return toDomain(&po, timeline)
}

// ListActive 查询非终态 Case，时间线一次性批量加载
func (r *CaseRepositoryImpl) ListActive(ctx context.Context) ([]*etcase.Case, error) {
	var pos []entity.Case
	if err := r.db.WithContext(ctx).
		Where("status NOT IN ?", []string{string(etcase.StatusCompleted), string(etcase.StatusCancelled)}).
		Order("created_at ASC").
		Find(&pos).Error; err != nil {
		return nil, err
	}
	if len(pos) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(pos))
	for _, po := range pos {
		ids = append(ids, po.ID)
	}

	var rows []entity.CaseTimelineEntry
	if err := r.db.WithContext(ctx).
		Where("case_id IN ?", ids).
		Order("case_id ASC, seq ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	byCase := make(map[string][]entity.CaseTimelineEntry, len(pos))
	for _, row := range rows {
		byCase[row.CaseID] = append(byCase[row.CaseID], row)
	}

	cases := make([]*etcase.Case, 0, len(pos))
	for i := range pos {
		c, err := toDomain(&pos[i], byCase[pos[i].ID])
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	return cases, nil
}
