package jobs

import (
	"context"
	"fmt"
	"strings"

	"rigrent-backend/internal/domain"
	"rigrent-backend/internal/logger"
	"rigrent-backend/internal/repository"
)

// machinePool is the bootstrap inventory created on an empty machine table.
var machinePool = []struct {
	tier  domain.ResourceTier
	count int
	specs string
}{
	{domain.ResourceTierLow, 10, "4 vCPU / 8 GiB / 1x T4"},
	{domain.ResourceTierMedium, 5, "8 vCPU / 32 GiB / 1x A10"},
	{domain.ResourceTierHigh, 5, "16 vCPU / 64 GiB / 2x A100"},
	{domain.ResourceTierSuperior, 5, "32 vCPU / 128 GiB / 4x H100"},
}

// SeedMachines populates the machine pool when no machine exists yet.
func (jr *JobRunner) SeedMachines() {
	jr.runWithRecovery("SeedMachines", func() {
		created, err := jr.seedMachines(jr.ctx)
		if err != nil {
			logger.Error("Failed to seed machines", "error", err)
			return
		}
		if created == 0 {
			logger.Info("Machine pool already populated, skipping seed")
			return
		}
		logger.Info("Seeded machine pool", "count", created)
	})
}

func (jr *JobRunner) seedMachines(ctx context.Context) (int, error) {
	created := 0
	err := jr.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		n, err := repos.Machines.Count(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		for _, group := range machinePool {
			for i := 1; i <= group.count; i++ {
				m := &domain.Machine{
					Serial: fmt.Sprintf("%s-%03d", strings.ToLower(string(group.tier)), i),
					Tier:   group.tier,
					Status: domain.MachineStatusAvailable,
					Specs:  group.specs,
				}
				if err := repos.Machines.Create(ctx, m); err != nil {
					return fmt.Errorf("create machine %s: %w", m.Serial, err)
				}
				created++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}
