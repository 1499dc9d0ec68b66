package service

import (
	"edu_assistant_backend/internal/config"
	"math"
)

// MasterySignals 单个 (学生, 知识点) 的三类信号；比值为 nil 表示没有数据
type MasterySignals struct {
	ActivityCount   int64
	AssignmentRatio *float64
	QuestionRatio   *float64
}

type MasteryParams struct {
	BaseProficiency    float64
	Jitter             float64
	ActivitySaturation float64
	ActivityWeight     float64
	AssignmentWeight   float64
	QuestionWeight     float64
}

func DefaultMasteryParams() MasteryParams {
	return MasteryParams{
		BaseProficiency:    0.5,
		Jitter:             0.2,
		ActivitySaturation: 15,
		ActivityWeight:     0.4,
		AssignmentWeight:   0.3,
		QuestionWeight:     0.3,
	}
}

func MasteryParamsFromConfig(cfg config.MasteryConfig) MasteryParams {
	return MasteryParams{
		BaseProficiency:    cfg.BaseProficiency,
		Jitter:             cfg.Jitter,
		ActivitySaturation: cfg.ActivitySaturation,
		ActivityWeight:     cfg.ActivityWeight,
		AssignmentWeight:   cfg.AssignmentWeight,
		QuestionWeight:     cfg.QuestionWeight,
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ActivitySignal 活动次数按饱和值归一后占 0.75，基础掌握度占 0.25，结果在 [0,1]
func ActivitySignal(count int64, p MasteryParams) float64 {
	saturation := p.ActivitySaturation
	if saturation <= 0 {
		saturation = 1
	}
	return 0.75*math.Min(1, float64(count)/saturation) + 0.25*clamp01(p.BaseProficiency)
}

// ComputeMastery 对存在的信号按各自权重加权平均（缺失信号的权重直接去掉）；
// 三类信号都缺失时取 base * U(1-jitter, 1+jitter)，rnd 为 nil 时不加扰动。
// 结果截断到 [0,1] 并保留两位小数。
func ComputeMastery(sig MasterySignals, p MasteryParams, rnd func() float64) float64 {
	var weighted, weights float64
	if sig.ActivityCount > 0 {
		weighted += p.ActivityWeight * ActivitySignal(sig.ActivityCount, p)
		weights += p.ActivityWeight
	}
	if sig.AssignmentRatio != nil {
		weighted += p.AssignmentWeight * clamp01(*sig.AssignmentRatio)
		weights += p.AssignmentWeight
	}
	if sig.QuestionRatio != nil {
		weighted += p.QuestionWeight * clamp01(*sig.QuestionRatio)
		weights += p.QuestionWeight
	}

	var v float64
	if weights > 0 {
		v = weighted / weights
	} else {
		factor := 1.0
		if rnd != nil {
			factor = 1 - p.Jitter + 2*p.Jitter*rnd()
		}
		v = p.BaseProficiency * factor
	}
	return math.Round(clamp01(v)*100) / 100
}
