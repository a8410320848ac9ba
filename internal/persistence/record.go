package persistence

import (
	"time"

	"github.com/pixil98/go-battle/internal/battle"
)

// BattleRecord is the table row for one battle.
type BattleRecord struct {
	ID                  string        `gorm:"primaryKey;size:36"`
	Player1ID           string        `gorm:"index;not null"`
	Player2ID           string        `gorm:"index;not null"`
	Player1ConnectionID string        `gorm:"index"`
	Player2ConnectionID string        `gorm:"index"`
	Status              battle.Status `gorm:"index;size:16;not null"`
	WinnerID            string
	CreatedAt           time.Time
	EndedAt             *time.Time
	Snapshot            *battle.State `gorm:"serializer:json"`
}

func (BattleRecord) TableName() string {
	return "battles"
}

func recordFromBattle(b *battle.Battle) *BattleRecord {
	return &BattleRecord{
		ID:                  b.ID,
		Player1ID:           b.Player1ID,
		Player2ID:           b.Player2ID,
		Player1ConnectionID: b.Player1ConnectionID,
		Player2ConnectionID: b.Player2ConnectionID,
		Status:              b.Status,
		WinnerID:            b.WinnerID,
		CreatedAt:           b.CreatedAt,
		EndedAt:             b.EndedAt,
		Snapshot:            b.Snapshot,
	}
}

func (r *BattleRecord) toBattle() *battle.Battle {
	return &battle.Battle{
		ID:                  r.ID,
		Player1ID:           r.Player1ID,
		Player2ID:           r.Player2ID,
		Player1ConnectionID: r.Player1ConnectionID,
		Player2ConnectionID: r.Player2ConnectionID,
		Status:              r.Status,
		WinnerID:            r.WinnerID,
		CreatedAt:           r.CreatedAt,
		EndedAt:             r.EndedAt,
		Snapshot:            r.Snapshot,
	}
}
