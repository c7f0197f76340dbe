// Package worker berisi job background. Sweeper menarik kembali booking
// yang menggantung tanpa pembayaran supaya kursinya bisa dijual lagi.
package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"travel-booking/internal/data/repository"
	"travel-booking/pkg/utils"
)

type Sweeper struct {
	repo *repository.Repository
	cfg  utils.SweeperConfig
	log  *zap.Logger
	now  func() time.Time
}

func NewSweeper(repo *repository.Repository, cfg utils.SweeperConfig, log *zap.Logger) *Sweeper {
	return &Sweeper{
		repo: repo,
		cfg:  cfg,
		log:  log,
		now:  time.Now,
	}
}

// Register pasang sweep pass ke scheduler cron.
func (s *Sweeper) Register(c *cron.Cron) error {
	_, err := c.AddFunc(s.cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		s.Sweep(ctx)
	})
	return err
}

// Sweep satu pass: cari booking basi yang belum lunas, expire cascade-nya.
// Satu kandidat error tidak menghentikan pass; booking yang keburu dibayar
// di tengah pass dilindungi guard SQL di ExpireCascade.
func (s *Sweeper) Sweep(ctx context.Context) (swept int) {
	now := s.now()
	cutoff := now.Add(-s.cfg.Staleness)

	candidates, err := s.repo.Booking.FindStaleUnpaid(ctx, cutoff, s.cfg.BatchSize)
	if err != nil {
		s.log.Error("Sweep pass failed to list candidates", zap.Error(err))
		return 0
	}
	if len(candidates) == 0 {
		return 0
	}

	var sweptValue int64
	for _, candidate := range candidates {
		// Re-cek state terkini sebelum mutasi; bisa saja webhook paid
		// masuk di antara query kandidat dan sekarang.
		booking, err := s.repo.Booking.FindByIDIncludingDeleted(ctx, candidate.ID)
		if err != nil {
			s.log.Error("Sweep candidate re-fetch failed",
				zap.Error(err),
				zap.String("booking_id", candidate.ID.String()),
			)
			continue
		}
		if booking == nil || booking.IsDeleted() {
			continue
		}
		if booking.IsPaid() {
			s.log.Info("Sweep near-miss, booking paid while queued",
				zap.String("booking_id", booking.ID.String()),
			)
			continue
		}

		applied, err := s.repo.Booking.ExpireCascade(ctx, booking.ID, now)
		if err != nil {
			s.log.Error("Sweep expire failed",
				zap.Error(err),
				zap.String("booking_id", booking.ID.String()),
			)
			continue
		}
		if !applied {
			// Guard SQL menolak: balapan dengan pembayaran. Menang yang bayar.
			s.log.Info("Sweep skipped by guard, booking no longer unpaid",
				zap.String("booking_id", booking.ID.String()),
			)
			continue
		}

		swept++
		sweptValue += booking.TotalPrice
	}

	s.log.Info("Sweep pass done",
		zap.Int("candidates", len(candidates)),
		zap.Int("swept", swept),
		zap.Int64("swept_value", sweptValue),
		zap.Time("cutoff", cutoff),
	)
	return swept
}
