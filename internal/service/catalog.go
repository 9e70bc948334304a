package service

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/herdbook/paycore/internal/config"
)

// Plan 订阅计划定价
type Plan struct {
	Name     string
	Price    decimal.Decimal
	Currency string
}

// PlanCatalog 计划目录（启动时由配置构建，运行期只读）
type PlanCatalog struct {
	plans map[string]Plan
}

// NewPlanCatalog 从配置构建计划目录
func NewPlanCatalog(cfg map[string]config.PlanConfig, defaultCurrency string) (*PlanCatalog, error) {
	plans := make(map[string]Plan, len(cfg))
	for name, pc := range cfg {
		price, err := decimal.NewFromString(pc.Price)
		if err != nil {
			return nil, err
		}
		currency := pc.Currency
		if currency == "" {
			currency = defaultCurrency
		}
		plans[name] = Plan{Name: name, Price: price, Currency: currency}
	}
	return &PlanCatalog{plans: plans}, nil
}

// Price 返回计划定价；未知计划返回 ErrInvalidPlan
func (c *PlanCatalog) Price(plan string) (Plan, error) {
	p, ok := c.plans[plan]
	if !ok {
		return Plan{}, ErrInvalidPlan
	}
	return p, nil
}

// Names 返回全部计划名（排序后）
func (c *PlanCatalog) Names() []string {
	names := make([]string, 0, len(c.plans))
	for name := range c.plans {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
