package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/taketurn/taketurn/internal/domain/turn"
	vo "github.com/taketurn/taketurn/internal/domain/turn/valueobjects"
	"github.com/taketurn/taketurn/internal/infrastructure/persistence/mappers"
	"github.com/taketurn/taketurn/internal/infrastructure/persistence/models"
	"github.com/taketurn/taketurn/internal/shared/db"
	apperrors "github.com/taketurn/taketurn/internal/shared/errors"
)

// TurnRepository stores turns in a SQL database through gorm. Several
// service instances may share one database: the unique indexes on the
// model are the concurrency boundary, and status updates are conditional
// so a stale writer cannot move a turn backward.
type TurnRepository struct {
	db     *gorm.DB
	txm    *db.TransactionManager
	mapper mappers.TurnMapper
}

func NewTurnRepository(gdb *gorm.DB) *TurnRepository {
	return &TurnRepository{
		db:     gdb,
		txm:    db.NewTransactionManager(gdb),
		mapper: mappers.NewTurnMapper(),
	}
}

func (r *TurnRepository) FindAvailable(ctx context.Context) (*turn.Turn, error) {
	var model models.TurnModel
	tx := db.GetTxFromContext(ctx, r.db)

	err := tx.Where("status = ?", vo.StatusAvailable.String()).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find available turn: %w", err)
	}
	return r.mapper.ToDomain(&model)
}

func (r *TurnRepository) CreateAvailable(ctx context.Context, number int64, id string) (*turn.Turn, error) {
	t, err := turn.NewTurn(id, number)
	if err != nil {
		return nil, err
	}

	model := r.mapper.ToModel(t)
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.Create(model).Error; err != nil {
		if apperrors.IsDuplicateError(err) {
			return nil, fmt.Errorf("%w: number %d: %v", turn.ErrConflict, number, err)
		}
		return nil, fmt.Errorf("failed to create turn: %w", err)
	}
	return r.mapper.ToDomain(model)
}

func (r *TurnRepository) FindByID(ctx context.Context, id string) (*turn.Turn, error) {
	var model models.TurnModel
	tx := db.GetTxFromContext(ctx, r.db)

	err := tx.Where("turn_sid = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find turn: %w", err)
	}
	return r.mapper.ToDomain(&model)
}

func (r *TurnRepository) UpdateStatus(ctx context.Context, id string, status vo.TurnStatus) (*turn.Turn, error) {
	t, _, err := r.conditionalUpdate(ctx, id, status, map[string]interface{}{
		"status": status.String(),
	})
	return t, err
}

func (r *TurnRepository) UpdateHolderAndStatus(ctx context.Context, id, holder string, status vo.TurnStatus) (*turn.Turn, bool, error) {
	return r.conditionalUpdate(ctx, id, status, map[string]interface{}{
		"holder": turn.NormalizeHolder(holder),
		"status": status.String(),
	})
}

// conditionalUpdate applies values only to a row whose current status may
// transition into status, then returns the row as stored and whether the
// update matched it.
func (r *TurnRepository) conditionalUpdate(ctx context.Context, id string, status vo.TurnStatus, values map[string]interface{}) (*turn.Turn, bool, error) {
	if !status.IsValid() {
		return nil, false, fmt.Errorf("invalid turn status %q", status)
	}

	var (
		result  *turn.Turn
		applied bool
	)
	err := r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		tx := db.GetTxFromContext(ctx, r.db)

		if sources := vo.SourcesOf(status); len(sources) > 0 {
			values["available_slot"] = models.AvailableSlot(status.IsAvailable())
			values["updated_at"] = time.Now().UnixMilli()

			sourceNames := make([]string, 0, len(sources))
			for _, s := range sources {
				sourceNames = append(sourceNames, s.String())
			}
			// Note: RowsAffected is 0 when the row is absent or the
			// transition is not allowed; the re-read below tells them apart.
			update := tx.Model(&models.TurnModel{}).
				Where("turn_sid = ? AND status IN ?", id, sourceNames).
				Updates(values)
			if update.Error != nil {
				return fmt.Errorf("failed to update turn: %w", update.Error)
			}
			applied = update.RowsAffected > 0
		}

		found, err := r.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if found == nil {
			return turn.ErrTurnNotFound
		}
		result = found
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return result, applied, nil
}

func (r *TurnRepository) MaxNumber(ctx context.Context) (int64, error) {
	var max int64
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.Model(&models.TurnModel{}).
		Select("COALESCE(MAX(number), 0)").
		Scan(&max).Error; err != nil {
		return 0, fmt.Errorf("failed to read max turn number: %w", err)
	}
	return max, nil
}

func (r *TurnRepository) ListAll(ctx context.Context) ([]*turn.Turn, error) {
	var list []models.TurnModel
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.Order("number DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	return r.mapper.ToDomainList(list)
}

func (r *TurnRepository) Clear(ctx context.Context) error {
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&models.TurnModel{}).Error; err != nil {
		return fmt.Errorf("failed to clear turns: %w", err)
	}
	return nil
}

var _ turn.Repository = (*TurnRepository)(nil)
