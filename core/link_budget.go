package core

import "math"

// SpeedOfLight in m/s, used for free-space path loss.
const SpeedOfLight = 299792458.0

// MarginLabel buckets a link margin.
type MarginLabel string

const (
	MarginGood         MarginLabel = "GOOD"
	MarginMarginal     MarginLabel = "MARGINAL"
	MarginInsufficient MarginLabel = "INSUFFICIENT"
)

// Margin thresholds in dB.
const (
	GoodMarginDB     = 10.0
	MarginalMarginDB = 3.0
)

// LinkBudget is the result of a single-hop RF budget at maximum range.
type LinkBudget struct {
	EIRPdBW     float64     `json:"eirp_dbw"`
	FSPLdB      float64     `json:"fspl_db"`
	RxPowerDBm  float64     `json:"rxPower_dbm"`
	MarginDB    float64     `json:"margin_db"`
	MarginLabel MarginLabel `json:"marginLabel"`
}

// ComputeLinkBudget evaluates EIRP, free-space path loss at MaxRangeM,
// received power and margin against the receiver sensitivity. The same
// antenna gain is applied at both ends. Non-finite intermediate values are
// clamped to 0.
func ComputeLinkBudget(cfg LinkConfig) LinkBudget {
	eirp := finiteOrZero(cfg.PowerDBW + cfg.AntennaGainDBi)
	fspl := FreeSpacePathLossDB(cfg.MaxRangeM, cfg.FrequencyGHz*1e9)

	// +30 converts dBW to dBm.
	rx := finiteOrZero((eirp + 30) - fspl + cfg.AntennaGainDBi)
	margin := finiteOrZero(rx - cfg.ReceiverSensitivityDBm)

	return LinkBudget{
		EIRPdBW:     eirp,
		FSPLdB:      fspl,
		RxPowerDBm:  rx,
		MarginDB:    margin,
		MarginLabel: ClassifyMargin(margin),
	}
}

// FreeSpacePathLossDB returns 20*log10(4*pi*d*f/c). Zero or negative
// distance or frequency yields 0.
func FreeSpacePathLossDB(rangeM, freqHz float64) float64 {
	return finiteOrZero(20 * math.Log10(4*math.Pi*rangeM*freqHz/SpeedOfLight))
}

// ClassifyMargin maps a margin in dB to its label.
func ClassifyMargin(marginDB float64) MarginLabel {
	switch {
	case marginDB >= GoodMarginDB:
		return MarginGood
	case marginDB >= MarginalMarginDB:
		return MarginMarginal
	default:
		return MarginInsufficient
	}
}

// NetworkReport combines the per-network figures shown next to a network:
// its budget, derived link count and aggregate bandwidth.
type NetworkReport struct {
	NetworkID          string       `json:"networkId"`
	Name               string       `json:"name"`
	Type               TopologyType `json:"type"`
	Members            int          `json:"members"`
	Links              int          `json:"links"`
	TotalBandwidthMbps float64      `json:"totalBandwidth_mbps"`
	Budget             LinkBudget   `json:"budget"`
}

// BuildNetworkReport computes the report for n.
func BuildNetworkReport(n *Network) NetworkReport {
	links := len(ComputeLinks(n))
	return NetworkReport{
		NetworkID:          n.ID,
		Name:               n.Name,
		Type:               n.Type,
		Members:            len(n.Members),
		Links:              links,
		TotalBandwidthMbps: float64(links) * n.Config.BandwidthMbps,
		Budget:             ComputeLinkBudget(n.Config),
	}
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
