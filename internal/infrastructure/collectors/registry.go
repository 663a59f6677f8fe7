package collectors

import (
	"fmt"
	"strings"

	"github.com/LavaJover/mmk-rates-service/internal/domain"
)

// Endpoints groups the upstream URLs of every source.
type Endpoints struct {
	CBM        CBMEndpoints
	KBZ        KBZEndpoints
	AYA        AYAEndpoints
	Yoma       YomaEndpoints
	CBBank     CBBankEndpoints
	BinanceP2P BinanceP2PEndpoints
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		CBM:        DefaultCBMEndpoints,
		KBZ:        DefaultKBZEndpoints,
		AYA:        DefaultAYAEndpoints,
		Yoma:       DefaultYomaEndpoints,
		CBBank:     DefaultCBBankEndpoints,
		BinanceP2P: DefaultBinanceP2PEndpoints,
	}
}

// NewDefaultCollectors returns every source in registration order: official first,
// then banks, then market sources.
func NewDefaultCollectors(fetcher *Fetcher, validator domain.RateValidator, endpoints Endpoints) ([]domain.RateCollector, error) {
	return NewRegistry(
		NewCBMCollector(fetcher, validator, endpoints.CBM),
		NewKBZCollector(fetcher, validator, endpoints.KBZ),
		NewAYACollector(fetcher, validator, endpoints.AYA),
		NewYomaCollector(fetcher, validator, endpoints.Yoma),
		NewCBBankCollector(fetcher, validator, endpoints.CBBank),
		NewBinanceP2PCollector(fetcher, validator, endpoints.BinanceP2P),
	)
}

// NewRegistry keeps the given order and rejects blank or repeated names.
// Names are compared case-insensitively, as source lookups are.
func NewRegistry(collectors ...domain.RateCollector) ([]domain.RateCollector, error) {
	seen := make(map[string]struct{}, len(collectors))
	out := make([]domain.RateCollector, 0, len(collectors))
	for _, c := range collectors {
		name := strings.TrimSpace(c.Name())
		if name == "" {
			return nil, fmt.Errorf("%w: collector with empty name", domain.ErrDuplicateSource)
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateSource, name)
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}
