package progress

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	judgeActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playoffs_judge_actions_total",
		Help: "Judge actions by action and result",
	}, []string{"action", "result"})

	ticksAppliedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playoffs_ticks_applied_total",
		Help: "Time-driven transitions written, by kind",
	}, []string{"kind"})
)

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case isInvalid(err):
		return "invalid"
	case isConflict(err):
		return "conflict"
	case isNotFound(err):
		return "not_found"
	default:
		return "error"
	}
}
