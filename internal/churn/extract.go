// Package churn 从 LLM 的分析文本中提取流失原因并统计出现次数。
package churn

import (
	"regexp"
	"sort"
	"strings"
)

// reasonPattern 匹配 "- <原因>: <数字>" 形式的条目，数字本身不参与统计
var reasonPattern = regexp.MustCompile(`- (.*?): \d+`)

// ReasonCount 单个流失原因及其在分析文本中的出现次数
type ReasonCount struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// ExtractReasons 按首次出现顺序返回去重后的原因标签
func ExtractReasons(analysis string) []string {
	matches := reasonPattern.FindAllStringSubmatch(analysis, -1)
	seen := make(map[string]struct{}, len(matches))
	reasons := make([]string, 0, len(matches))
	for _, m := range matches {
		reason := m[1]
		if strings.TrimSpace(reason) == "" {
			continue
		}
		if _, ok := seen[reason]; ok {
			continue
		}
		seen[reason] = struct{}{}
		reasons = append(reasons, reason)
	}
	return reasons
}

// CountReasons 统计每个原因标签在整段分析文本中的字面出现次数。
// 计数来自子串匹配而非条目中的数字，按次数降序、标签升序排列。
func CountReasons(analysis string) []ReasonCount {
	reasons := ExtractReasons(analysis)
	counts := make([]ReasonCount, 0, len(reasons))
	for _, reason := range reasons {
		counts = append(counts, ReasonCount{
			Reason: reason,
			Count:  strings.Count(analysis, reason),
		})
	}

	sort.SliceStable(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Reason < counts[j].Reason
	})
	return counts
}
