package bus

import (
	"fmt"
	"strings"

	"github.com/snapsearch/snap-search/internal/config"
	"github.com/snapsearch/snap-search/internal/pkg/errors"
)

// NewBus creates a new Bus instance based on the configuration.
// When an event log path is configured, the bus is wrapped so every
// published event is also appended to a JSON-lines file on disk.
func NewBus(cfg config.BusConfig) (Bus, error) {
	inner, err := newInnerBus(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.EventLog == "" {
		return inner, nil
	}

	eventLogger, err := NewEventLogger(cfg.EventLog, true)
	if err != nil {
		inner.Close()
		return nil, errors.Wrap(errors.CodeInternal, "failed to create event logger", err)
	}

	return NewLoggedBus(inner, eventLogger, nil), nil
}

func newInnerBus(cfg config.BusConfig) (Bus, error) {
	switch strings.ToLower(cfg.Type) {
	case "memory", "":
		return NewMemoryBus(), nil

	case "kafka":
		brokers := ParseKafkaBrokers(cfg.KafkaBrokers)
		if len(brokers) == 0 {
			return nil, errors.New(errors.CodeValidation, "kafka brokers not configured")
		}

		kcfg := KafkaConfig{
			Brokers:       brokers,
			ConsumerGroup: cfg.KafkaGroup,
			ClientID:      "snap-search-bus",
		}
		if kcfg.ConsumerGroup == "" {
			kcfg.ConsumerGroup = "snap-search"
		}
		return NewKafkaBus(kcfg)

	default:
		return nil, errors.New(errors.CodeValidation, fmt.Sprintf("unknown bus type: %s", cfg.Type))
	}
}
