package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "authcore"

// Metrics 认证相关指标, nil 接收者上的调用均为空操作
type Metrics struct {
	cacheLookups *prometheus.CounterVec
	tokensIssued *prometheus.CounterVec
	authFailures *prometheus.CounterVec
}

// New 创建并注册指标
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "permission_cache_lookups_total",
			Help:      "Permission cache lookups by key namespace and result.",
		}, []string{"namespace", "result"}),
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Tokens issued by principal kind.",
		}, []string{"kind"}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Rejected authentication and authorization attempts by reason.",
		}, []string{"reason"}),
	}
	reg.MustRegister(m.cacheLookups, m.tokensIssued, m.authFailures)
	return m
}

// CacheLookup 记录一次缓存查找, result 取 hit|miss|error
func (m *Metrics) CacheLookup(ns, result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(ns, result).Inc()
}

// TokenIssued 记录一次签发
func (m *Metrics) TokenIssued(kind string) {
	if m == nil {
		return
	}
	m.tokensIssued.WithLabelValues(kind).Inc()
}

// AuthFailure 记录一次拒绝
func (m *Metrics) AuthFailure(reason string) {
	if m == nil {
		return
	}
	m.authFailures.WithLabelValues(reason).Inc()
}
