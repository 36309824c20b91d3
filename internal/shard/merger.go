package shard

import (
	"github.com/RecoveryAshes/ListHarvest/internal/models"
)

// Merger 按身份键合并分片结果
// 已见键集合归实例所有,每次运行使用新的Merger
type Merger struct {
	seen      map[string]bool
	collected *models.MergedCollection
}

// NewMerger 创建合并器
func NewMerger() *Merger {
	return &Merger{
		seen:      make(map[string]bool),
		collected: &models.MergedCollection{},
	}
}

// Merge 按给定顺序合并结果,保留首次出现的记录
// 无身份键的记录被丢弃并单独计数,失败结果只出现在摘要中
func (m *Merger) Merge(outcomes []models.ShardOutcome) *models.MergedCollection {
	for _, outcome := range outcomes {
		m.add(outcome)
	}
	return m.collected
}

func (m *Merger) add(outcome models.ShardOutcome) {
	m.collected.Outcomes = append(m.collected.Outcomes, outcome.Summary())
	if outcome.Result == nil {
		return
	}

	for _, rec := range outcome.Result.Records {
		if !rec.Identifiable() {
			m.collected.Unidentifiable++
			continue
		}
		if m.seen[rec.Key] {
			m.collected.Duplicates++
			continue
		}
		m.seen[rec.Key] = true
		m.collected.Records = append(m.collected.Records, rec.Clone())
	}
}

// AsOutcome 把合并结果包装为单个成功结果,便于再次合并
func AsOutcome(merged *models.MergedCollection) models.ShardOutcome {
	records := make([]models.Record, len(merged.Records))
	copy(records, merged.Records)
	return models.ShardOutcome{
		Shard:  models.Shard{Index: 0},
		Result: &models.TraversalResult{Records: records},
	}
}
