package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var promoSelectors = []string{
	".sticker-promo__text",
	".product-card-badge__labels",
	".promo-badge",
	`[class*="promotion"]`,
	`[class*="discount"]`,
}

var promoKeywords = []string{"%", "€", "offre", "promo"}

// retailFields 计算零售预设的派生字段,已配置的同名字段优先
func retailFields(root *goquery.Selection, fields map[string]string) {
	setIfEmpty(fields, "price", extractPrice(root))
	setIfEmpty(fields, "ean", extractEAN(root, fields["url"]))
	setIfEmpty(fields, "nutriscore", extractNutriscore(root))
	setIfEmpty(fields, "promo", extractPromo(root))
}

func setIfEmpty(fields map[string]string, name, value string) {
	if value == "" || fields[name] != "" {
		return
	}
	fields[name] = value
}

func text(root *goquery.Selection, selector string) string {
	return collapseText(root.Find(selector).First().Text())
}

// extractPrice 整数/小数/货币三段拼接,缺任一段时退回主价格
func extractPrice(root *goquery.Selection) string {
	whole := text(root, ".product-price__content:nth-child(1)")
	decimal := text(root, ".product-price__content:nth-child(2)")
	currency := text(root, ".product-price__content:nth-child(3)")
	if whole != "" && decimal != "" && currency != "" {
		return whole + decimal + " " + currency
	}
	return text(root, ".product-price__amount--main")
}

// extractEAN 13位数字的article id,否则取商品URL最后一段
func extractEAN(root *goquery.Selection, productURL string) string {
	if id, ok := root.Find("article").First().Attr("id"); ok && isEAN(id) {
		return id
	}
	if productURL == "" {
		return ""
	}
	parts := strings.Split(productURL, "-")
	if last := parts[len(parts)-1]; isEAN(last) {
		return last
	}
	return ""
}

func isEAN(s string) bool {
	if len(s) != 13 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// extractNutriscore 从徽章图片地址取等级字母,如 nutriscore-b.svg -> B
func extractNutriscore(root *goquery.Selection) string {
	src, ok := root.Find(".nutriscore-badge img").First().Attr("src")
	if !ok || !strings.Contains(strings.ToLower(src), "nutriscore") {
		return ""
	}
	parts := strings.Split(src, "-")
	last := parts[len(parts)-1]
	if last == "" {
		return ""
	}
	return strings.ToUpper(last[:1])
}

// extractPromo 含促销关键词的标签文本,否则退回原价
func extractPromo(root *goquery.Selection) string {
	for _, sel := range promoSelectors {
		t := text(root, sel)
		if t == "" {
			continue
		}
		lower := strings.ToLower(t)
		for _, kw := range promoKeywords {
			if strings.Contains(lower, kw) {
				return t
			}
		}
	}
	if old := text(root, ".product-price__amount--old"); old != "" {
		return "Ancien prix: " + old
	}
	return ""
}
