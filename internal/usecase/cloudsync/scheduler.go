package cloudsync

import (
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/frontandrew/parkpos/internal/pkg/logger"
)

// NewScheduler создает планировщик периодической выгрузки
// Пустое расписание - планировщик без задач.
func NewScheduler(spec string, svc *Service, log logger.Logger) (*cron.Cron, error) {
	c := cron.New()

	if spec == "" || !svc.Enabled() {
		return c, nil
	}

	if _, err := c.AddFunc(spec, svc.TriggerPush); err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", spec, err)
	}

	log.Info("Cloud sync scheduled", map[string]interface{}{
		"schedule": spec,
	})

	return c, nil
}
