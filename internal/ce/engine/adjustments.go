package engine

import (
	"strings"
	"time"

	"github.com/xxz807/cfodesk/backend/internal/ce/domain"
)

// InjectAdjustments 把激活的调整分录追加为合成交易
// 只追加，不修改也不删除原始交易；未激活的调整直接排除
func InjectAdjustments(txs []domain.Transaction, adjs []domain.Adjustment) []domain.Transaction {
	out := make([]domain.Transaction, len(txs), len(txs)+len(adjs))
	copy(out, txs)

	for _, a := range adjs {
		if !a.Active {
			continue
		}
		date, ok := adjustmentDate(a)
		if !ok {
			continue
		}
		ref := a.ID
		if ref == "" {
			ref = a.Description
		}
		out = append(out, domain.Transaction{
			Date:        date,
			AccountCode: strings.TrimSpace(a.AccountCode),
			Amount:      a.Amount,
			Site:        a.Site,
			Synthetic:   true,
			Ref:         ref,
		})
	}
	return out
}

// adjustmentDate 显式日期优先，否则取月份的第一天
func adjustmentDate(a domain.Adjustment) (time.Time, bool) {
	if a.Date != nil && !a.Date.IsZero() {
		return *a.Date, true
	}
	m := strings.TrimSpace(a.Month)
	if len(m) > 7 {
		m = m[:7]
	}
	t, err := time.Parse("2006-01", m)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
