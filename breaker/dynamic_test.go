package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/wyfcoding/fixmonitor/config"
)

func TestDynamicBreakerNilPassthrough(t *testing.T) {
	var d *DynamicBreaker

	got, err := d.Execute(func() (any, error) { return "ok", nil })
	if err != nil {
		t.Fatalf("nil breaker should pass through, got error: %v", err)
	}
	if got != "ok" {
		t.Errorf("expected result %q, got %v", "ok", got)
	}
}

func TestDynamicBreakerDisabledPassthrough(t *testing.T) {
	d := NewDynamicBreaker("test-disabled", nil, 0.5, 2)
	d.Update(config.CircuitBreakerConfig{Enabled: false})

	// 关闭状态下连续失败也不应熔断。
	for i := 0; i < 10; i++ {
		_, err := d.Execute(func() (any, error) { return nil, errors.New("boom") })
		if err == nil || err.Error() != "boom" {
			t.Fatalf("expected underlying error, got: %v", err)
		}
	}
	got, err := d.Execute(func() (any, error) { return 42, nil })
	if err != nil {
		t.Fatalf("disabled breaker should pass through: %v", err)
	}
	if got != 42 {
		t.Errorf("expected 42, got %v", got)
	}
}

func TestDynamicBreakerTripsWhenEnabled(t *testing.T) {
	d := NewDynamicBreaker("test-trips", nil, 0.5, 2)
	d.Update(config.CircuitBreakerConfig{
		Enabled:     true,
		Timeout:     time.Minute,
		MaxRequests: 1,
	})

	for i := 0; i < 10; i++ {
		d.Execute(func() (any, error) { return nil, errors.New("downstream down") })
	}

	called := false
	_, err := d.Execute(func() (any, error) {
		called = true
		return nil, nil
	})
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable after repeated failures, got: %v", err)
	}
	if called {
		t.Error("open breaker must not invoke the protected function")
	}
}

func TestDynamicBreakerUpdateSwapsPolicy(t *testing.T) {
	d := NewDynamicBreaker("test-swap", nil, 0.5, 2)
	d.Update(config.CircuitBreakerConfig{
		Enabled:     true,
		Timeout:     time.Minute,
		MaxRequests: 1,
	})
	for i := 0; i < 10; i++ {
		d.Execute(func() (any, error) { return nil, errors.New("downstream down") })
	}
	if _, err := d.Execute(func() (any, error) { return nil, nil }); !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected open breaker before update, got: %v", err)
	}

	// 热更新为关闭后立即恢复直通。
	d.Update(config.CircuitBreakerConfig{Enabled: false})
	got, err := d.Execute(func() (any, error) { return "recovered", nil })
	if err != nil {
		t.Fatalf("expected passthrough after disabling, got: %v", err)
	}
	if got != "recovered" {
		t.Errorf("expected %q, got %v", "recovered", got)
	}
}
