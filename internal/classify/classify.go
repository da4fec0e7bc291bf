package classify

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"pagepulse/internal/model"
)

// Category pairs a taxonomy value with its keyword set. Categories are
// matched in declaration order: the strictly highest keyword-hit count
// wins, and on a tie the earlier category wins.
type Category struct {
	Name     string
	Keywords []string
}

// FormatTypes classifies the form of a post (event announcement,
// press, statement, ...).
var FormatTypes = []Category{
	{"event", []string{"影展", "講座", "論壇", "工作坊", "分享會", "座談", "活動報名", "歡迎參加"}},
	{"press", []string{"記者會", "媒體", "採訪", "新聞稿"}},
	{"statement", []string{"聲明", "發言", "立場", "呼籲", "強調", "我們認為"}},
	{"opinion", []string{"觀點", "評論", "分析", "看法", "時事"}},
	{"op_ed", []string{"投書", "專欄", "刊登", "媒體投書"}},
	{"report", []string{"報告", "發布", "研究", "調查", "數據", "出爐"}},
	{"booth", []string{"擺攤", "市集", "現場", "來找我們"}},
	{"edu", []string{"懶人包", "Podcast", "科普", "Q&A", "知識", "解說", "你知道嗎", "一次看懂"}},
	{"action", []string{"連署", "捐款", "志工", "行動", "參與", "支持我們", "一起"}},
}

// IssueTopics classifies the policy subject of a post.
var IssueTopics = []Category{
	{"nuclear", []string{"核電", "核能", "核四", "核廢", "核安", "輻射"}},
	{"climate", []string{"氣候", "暖化", "碳排", "COP", "極端天氣", "氣候變遷"}},
	{"net_zero", []string{"淨零", "碳中和", "2050", "淨零轉型", "減碳"}},
	{"industry", []string{"產業", "企業", "ESG", "永續", "供應鏈", "碳盤查"}},
	{"renewable", []string{"光電", "風電", "再生能源", "綠電", "太陽能", "離岸風電", "屋頂", "公民電廠"}},
	{"other", []string{"勞動", "環評", "空污", "水資源", "生態"}},
}

// CTATypes detects calls to action. First matching keyword wins.
var CTATypes = []Category{
	{"learn_more", []string{"了解更多", "看更多", "詳情"}},
	{"sign_up", []string{"報名", "參加", "加入"}},
	{"donate", []string{"捐款", "支持", "贊助"}},
	{"share", []string{"分享", "轉發", "擴散"}},
}

var (
	hashtagRe = regexp.MustCompile(`#[\p{L}\p{N}_]+`)
	linkRe    = regexp.MustCompile(`https?://`)
)

// DetectCategory scans text against an ordered category list and
// returns the winning category name, or "" when no keyword matches.
func DetectCategory(text string, cats []Category) string {
	if text == "" {
		return ""
	}
	best := ""
	bestScore := 0
	for _, c := range cats {
		score := 0
		for _, kw := range c.Keywords {
			if strings.Contains(text, kw) {
				score++
			}
		}
		if score > bestScore {
			best = c.Name
			bestScore = score
		}
	}
	return best
}

// DetectCTA reports whether text contains a call to action and which
// type. Matching is case-insensitive.
func DetectCTA(text string) (bool, string) {
	if text == "" {
		return false, ""
	}
	lower := strings.ToLower(text)
	for _, c := range CTATypes {
		for _, kw := range c.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return true, c.Name
			}
		}
	}
	return false, ""
}

// DetectMediaType infers a media-type hint from the permalink. The
// real type would come from the post attachments; this mirrors the
// collector's simplified heuristic.
func DetectMediaType(message, permalink string) string {
	if message == "" {
		return "link"
	}
	pl := strings.ToLower(permalink)
	switch {
	case strings.Contains(pl, "video"):
		return "video"
	case strings.Contains(pl, "photo"):
		return "image"
	default:
		return "text"
	}
}

// LengthTier buckets a message length into short/medium/long.
func LengthTier(length int) string {
	switch {
	case length <= 100:
		return "short"
	case length <= 300:
		return "medium"
	default:
		return "long"
	}
}

// Post produces the full classification record for a post. Pure given
// the post fields and the static dictionaries; created is assumed UTC
// and shifted by utcOffsetHours before any temporal field is derived.
func Post(p model.Post, utcOffsetHours int) model.Classification {
	msg := p.Message
	hashtags := 0
	if msg != "" {
		hashtags = len(hashtagRe.FindAllString(msg, -1))
	}
	tf := TimeFields(p.CreatedTime, utcOffsetHours)

	hasCTA, ctaType := DetectCTA(msg)
	length := utf8.RuneCountInString(msg)
	return model.Classification{
		PostID: p.ID,

		MediaType:    DetectMediaType(msg, p.Permalink),
		HasLink:      msg != "" && linkRe.MatchString(msg),
		HasHashtag:   hashtags > 0,
		HashtagCount: hashtags,

		MessageLength: length,
		LengthTier:    LengthTier(length),
		WordCount:     len(strings.Fields(msg)),

		FormatType: DetectCategory(msg, FormatTypes),
		IssueTopic: DetectCategory(msg, IssueTopics),

		HasCTA:  hasCTA,
		CTAType: ctaType,

		HourOfDay:  tf.Hour,
		DayOfWeek:  tf.DayOfWeek,
		WeekOfYear: tf.WeekOfYear,
		Month:      tf.Month,
		IsWeekend:  tf.IsWeekend,
		TimeSlot:   tf.TimeSlot,
	}
}
