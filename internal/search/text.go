package search

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// StripHTML 去掉摘要里残留的 HTML 标签和实体，纯文本原样返回
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// Flatten 把搜索响应拼接成交给 LLM 的纯文本。
// 没有任何可用内容时返回空字符串。
func Flatten(resp *Response) string {
	if resp == nil {
		return ""
	}

	var sb strings.Builder
	if answer := StripHTML(resp.Answer); answer != "" {
		fmt.Fprintf(&sb, "Answer: %s\n\n", answer)
	}

	n := 0
	for _, r := range resp.Results {
		title := StripHTML(r.Title)
		content := StripHTML(r.Content)
		if title == "" && content == "" {
			continue
		}
		n++
		fmt.Fprintf(&sb, "[%d] %s\n", n, title)
		if r.URL != "" {
			fmt.Fprintf(&sb, "URL: %s\n", r.URL)
		}
		if r.PublishedDate != "" {
			fmt.Fprintf(&sb, "Published: %s\n", r.PublishedDate)
		}
		if content != "" {
			sb.WriteString(content)
			sb.WriteByte('\n')
		}
		sb.WriteByte('\n')
	}

	return strings.TrimSpace(sb.String())
}
