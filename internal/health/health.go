package health

import (
	"fmt"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"
)

// Pinger 可以被探活的依赖
type Pinger interface {
	Health() error
}

// HealthChecker 健康检查器
type HealthChecker struct {
	health healthcheck.Handler
	checks map[string]Pinger
	logger *zap.Logger
}

// NewHealthChecker 创建健康检查器。
//
// deps 中的每一项都注册为就绪检查；存活检查只看 goroutine 数量，
// 依赖暂时不可用时进程不应被重启。
func NewHealthChecker(deps map[string]Pinger, logger *zap.Logger) *HealthChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	hc := &HealthChecker{
		health: healthcheck.NewHandler(),
		checks: deps,
		logger: logger,
	}

	hc.health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(10000))
	for name, dep := range deps {
		hc.health.AddReadinessCheck(name, healthcheck.Timeout(hc.wrap(name, dep), 5*time.Second))
	}

	return hc
}

func (hc *HealthChecker) wrap(name string, dep Pinger) healthcheck.Check {
	return func() error {
		if err := dep.Health(); err != nil {
			hc.logger.Warn("Readiness check failed", zap.String("check", name), zap.Error(err))
			return err
		}
		return nil
	}
}

// Handler 返回健康检查处理器，挂载 /live 与 /ready
func (hc *HealthChecker) Handler() http.Handler {
	return hc.health
}

// LiveHandler 存活检查
func (hc *HealthChecker) LiveHandler() http.HandlerFunc {
	return hc.health.LiveEndpoint
}

// ReadyHandler 就绪检查
func (hc *HealthChecker) ReadyHandler() http.HandlerFunc {
	return hc.health.ReadyEndpoint
}

// CheckHealth 执行一次检查并返回各依赖的状态
func (hc *HealthChecker) CheckHealth() map[string]string {
	results := make(map[string]string, len(hc.checks)+1)
	for name, dep := range hc.checks {
		if err := dep.Health(); err != nil {
			results[name] = fmt.Sprintf("ERROR: %v", err)
		} else {
			results[name] = "OK"
		}
	}
	results["timestamp"] = time.Now().Format(time.RFC3339)
	return results
}
