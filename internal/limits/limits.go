package limits

import (
	"fmt"
	"time"
)

// PipelineLimits определяет лимиты и тюнинг для всех стадий пайплайна
type PipelineLimits struct {
	MaxTestsPerEndpoint     int           `json:"max_tests_per_endpoint"`
	IDORVariants            int           `json:"idor_variants"`
	AuthBypassVariants      int           `json:"auth_bypass_variants"`
	MethodConfusionVariants int           `json:"method_confusion_variants"`
	MassAssignmentVariants  int           `json:"mass_assignment_variants"`
	MaxPoolValues           int           `json:"max_pool_values"`
	Concurrency             int           `json:"concurrency"`
	RequestsPerSecond       float64       `json:"requests_per_second"`
	RequestTimeout          time.Duration `json:"request_timeout"`
	MaxBodyBytes            int           `json:"max_body_bytes"`
	LengthDiffThreshold     float64       `json:"length_diff_threshold"`
	AllowDestructive        bool          `json:"allow_destructive"`
	Seed                    int64         `json:"seed"`
}

// DefaultPipelineLimits возвращает лимиты по умолчанию
func DefaultPipelineLimits() *PipelineLimits {
	return &PipelineLimits{
		MaxTestsPerEndpoint:     30,
		IDORVariants:            10,
		AuthBypassVariants:      5,
		MethodConfusionVariants: 10,
		MassAssignmentVariants:  5,
		MaxPoolValues:           20,
		Concurrency:             5,
		RequestsPerSecond:       2.0,
		RequestTimeout:          30 * time.Second,
		MaxBodyBytes:            20480,
		LengthDiffThreshold:     0.30,
		AllowDestructive:        false,
		Seed:                    1,
	}
}

// Validate проверяет валидность лимитов перед запуском пайплайна
func (pl *PipelineLimits) Validate() error {
	if pl.MaxTestsPerEndpoint <= 0 {
		return fmt.Errorf("MaxTestsPerEndpoint must be positive")
	}
	if pl.IDORVariants <= 0 {
		return fmt.Errorf("IDORVariants must be positive")
	}
	if pl.AuthBypassVariants <= 0 {
		return fmt.Errorf("AuthBypassVariants must be positive")
	}
	if pl.MethodConfusionVariants <= 0 {
		return fmt.Errorf("MethodConfusionVariants must be positive")
	}
	if pl.MassAssignmentVariants <= 0 {
		return fmt.Errorf("MassAssignmentVariants must be positive")
	}
	if pl.MaxPoolValues <= 0 {
		return fmt.Errorf("MaxPoolValues must be positive")
	}
	if pl.Concurrency <= 0 {
		return fmt.Errorf("Concurrency must be positive")
	}
	if pl.RequestsPerSecond <= 0 {
		return fmt.Errorf("RequestsPerSecond must be positive")
	}
	if pl.RequestTimeout <= 0 {
		return fmt.Errorf("RequestTimeout must be positive")
	}
	if pl.MaxBodyBytes <= 0 {
		return fmt.Errorf("MaxBodyBytes must be positive")
	}
	if pl.LengthDiffThreshold <= 0 {
		return fmt.Errorf("LengthDiffThreshold must be positive")
	}
	return nil
}
