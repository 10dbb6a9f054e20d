package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// LinkType is the physical medium of a network's links.
type LinkType string

const (
	LinkRF     LinkType = "rf"
	LinkSatcom LinkType = "satcom"
	LinkFiber  LinkType = "fiber"
	LinkLaser  LinkType = "laser"
)

// LinkConfig describes the physical parameters shared by every link of a
// network. JSON names follow the scenario file format.
type LinkConfig struct {
	LinkType               LinkType `json:"linkType" yaml:"linkType" validate:"required,oneof=rf satcom fiber laser"`
	FrequencyGHz           float64  `json:"frequency_ghz" yaml:"frequency_ghz" validate:"gte=0"`
	BandwidthMbps          float64  `json:"bandwidth_mbps" yaml:"bandwidth_mbps" validate:"gte=0"`
	DataRateMbps           float64  `json:"dataRate_mbps" yaml:"dataRate_mbps" validate:"gte=0"`
	PowerDBW               float64  `json:"power_dbw" yaml:"power_dbw"`
	AntennaGainDBi         float64  `json:"antenna_gain_dbi" yaml:"antenna_gain_dbi"`
	ReceiverSensitivityDBm float64  `json:"receiver_sensitivity_dbm" yaml:"receiver_sensitivity_dbm"`
	MaxRangeM              float64  `json:"maxRange_m" yaml:"maxRange_m" validate:"gte=0"`
	LatencyMs              float64  `json:"latency_ms" yaml:"latency_ms" validate:"gte=0"`
	Encryption             string   `json:"encryption" yaml:"encryption"`
	Protocol               string   `json:"protocol" yaml:"protocol"`
	Priority               int      `json:"priority" yaml:"priority" validate:"min=1,max=10"`
}

// DefaultLinkConfig is the configuration new networks start with.
func DefaultLinkConfig() LinkConfig {
	return LinkConfig{
		LinkType:               LinkRF,
		FrequencyGHz:           2.4,
		BandwidthMbps:          10,
		DataRateMbps:           2,
		PowerDBW:               10,
		AntennaGainDBi:         6,
		ReceiverSensitivityDBm: -100,
		MaxRangeM:              50000,
		LatencyMs:              10,
		Encryption:             "AES-256",
		Protocol:               "TCP/IP",
		Priority:               5,
	}
}

// linkPresets carries the physical defaults for each medium. Encryption,
// protocol and priority are operator choices and are not part of a preset.
var linkPresets = map[LinkType]LinkConfig{
	LinkRF: {
		LinkType: LinkRF, FrequencyGHz: 2.4, BandwidthMbps: 10, DataRateMbps: 2,
		PowerDBW: 10, AntennaGainDBi: 6, ReceiverSensitivityDBm: -100,
		MaxRangeM: 50000, LatencyMs: 10,
	},
	LinkSatcom: {
		LinkType: LinkSatcom, FrequencyGHz: 12, BandwidthMbps: 50, DataRateMbps: 20,
		PowerDBW: 20, AntennaGainDBi: 35, ReceiverSensitivityDBm: -120,
		MaxRangeM: 36000000, LatencyMs: 250,
	},
	LinkFiber: {
		LinkType: LinkFiber, FrequencyGHz: 193.4, BandwidthMbps: 10000, DataRateMbps: 10000,
		PowerDBW: -30, AntennaGainDBi: 0, ReceiverSensitivityDBm: -28,
		MaxRangeM: 80000, LatencyMs: 0.5,
	},
	LinkLaser: {
		LinkType: LinkLaser, FrequencyGHz: 193.4, BandwidthMbps: 1000, DataRateMbps: 1000,
		PowerDBW: 0, AntennaGainDBi: 100, ReceiverSensitivityDBm: -50,
		MaxRangeM: 5000000, LatencyMs: 1,
	},
}

// Preset returns the physical defaults for a link type.
func Preset(lt LinkType) (LinkConfig, bool) {
	p, ok := linkPresets[lt]
	return p, ok
}

// WithPreset returns c with its physical parameters replaced by the preset
// for lt. Encryption, protocol and priority carry over.
func (c LinkConfig) WithPreset(lt LinkType) (LinkConfig, error) {
	p, ok := Preset(lt)
	if !ok {
		return c, fmt.Errorf("%w: unknown link type %q", ErrInvalidConfig, lt)
	}
	p.Encryption = c.Encryption
	p.Protocol = c.Protocol
	p.Priority = c.Priority
	return p, nil
}

var validate = validator.New()

// Validate checks ranges and enumerations on the configuration.
func (c LinkConfig) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), describeTag(fe)))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

func describeTag(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}
