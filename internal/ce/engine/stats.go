package engine

import (
	"math"

	"github.com/xxz807/cfodesk/backend/internal/ce/domain"
)

// 趋势方向
const (
	DirectionUp   = "up"
	DirectionDown = "down"
	DirectionFlat = "flat"
)

// DefaultTrendMonths 默认取最近 6 个月
const DefaultTrendMonths = 6

// Trend 某一行最近几个月的走势
type Trend struct {
	Months    []string  `json:"mesi"`
	Values    []float64 `json:"vals"`
	Mean      float64   `json:"media"`
	Std       float64   `json:"std"`
	CV        float64   `json:"cv"`
	MoM       float64   `json:"mom"`
	Direction string    `json:"direction"`
	Last      float64   `json:"ultimo"`
}

// ComputeTrend 行不存在或不足两个月时返回 nil
func ComputeTrend(p *domain.Pivot, label string, n int) *Trend {
	if p == nil {
		return nil
	}
	r, ok := p.Row(label)
	if !ok || r.Blank {
		return nil
	}
	if n <= 0 {
		n = DefaultTrendMonths
	}
	months := p.Months
	if len(months) > n {
		months = months[len(months)-n:]
	}
	if len(months) < 2 {
		return nil
	}

	vals := rowFloats(r, months)
	mean, std := meanStd(vals)
	prev := vals[len(vals)-2]
	last := vals[len(vals)-1]

	mom := 0.0
	if prev != 0 {
		mom = (last - prev) / math.Abs(prev) * 100
	}

	return &Trend{
		Months:    append([]string(nil), months...),
		Values:    vals,
		Mean:      mean,
		Std:       std,
		CV:        cv(mean, std),
		MoM:       mom,
		Direction: direction(vals),
		Last:      last,
	}
}

// direction 看最后三个点是否严格单调
func direction(vals []float64) string {
	last := vals
	if len(last) > 3 {
		last = last[len(last)-3:]
	}
	up, down := true, true
	for i := 0; i+1 < len(last); i++ {
		if !(last[i] < last[i+1]) {
			up = false
		}
		if !(last[i] > last[i+1]) {
			down = false
		}
	}
	switch {
	case up:
		return DirectionUp
	case down:
		return DirectionDown
	}
	return DirectionFlat
}

// RowStats 单行的月度统计
type RowStats struct {
	Mean   float64   `json:"media"`
	Std    float64   `json:"std"`
	Min    float64   `json:"min"`
	Max    float64   `json:"max"`
	CV     float64   `json:"cv"`
	Values []float64 `json:"vals"`
	Months []string  `json:"mesi"`
}

// MonthlyStatistics 每个非分隔行的均值、总体标准差、极值和变异系数
func MonthlyStatistics(p *domain.Pivot) map[string]RowStats {
	out := make(map[string]RowStats)
	if p == nil || len(p.Months) == 0 {
		return out
	}
	for i := range p.Rows {
		r := &p.Rows[i]
		if r.Type == domain.RowSeparatore {
			continue
		}
		vals := rowFloats(r, p.Months)
		mean, std := meanStd(vals)
		lo, hi := vals[0], vals[0]
		for _, v := range vals[1:] {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		out[r.Label] = RowStats{
			Mean:   mean,
			Std:    std,
			Min:    lo,
			Max:    hi,
			CV:     cv(mean, std),
			Values: vals,
			Months: append([]string(nil), p.Months...),
		}
	}
	return out
}

func rowFloats(r *domain.Row, months []string) []float64 {
	out := make([]float64, len(months))
	for i, m := range months {
		out[i] = r.Value(m).InexactFloat64()
	}
	return out
}

// meanStd 总体标准差 (ddof = 0)
func meanStd(vals []float64) (float64, float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(len(vals))
	sq := 0.0
	for _, v := range vals {
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq / float64(len(vals)))
}

func cv(mean, std float64) float64 {
	if mean == 0 {
		return 0
	}
	return math.Abs(std / mean * 100)
}
