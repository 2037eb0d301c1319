package model

// 阶段入口返回的状态标签
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// 错误码
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeProcessing = "PROCESSING_FAILED"
	CodeInternal   = "INTERNAL_ERROR"
)

// FailedTopic 扫描阶段 LLM 失败时的哨兵话题
const FailedTopic = "系统分析失败"

// RawTopic 热榜中的一行
type RawTopic struct {
	Rank      int    `json:"rank"`
	Title     string `json:"title"`
	Hotness   string `json:"hotness"`
	Link      string `json:"link"`
	SourceURL string `json:"source_url"`
	ScrapedAt string `json:"scraped_at"`
}

// RiskItem 扫描阶段识别出的潜在风险话题
type RiskItem struct {
	ID                 string `json:"id"`
	Topic              string `json:"topic"`
	Platform           string `json:"platform"`
	Hotness            string `json:"hotness"`
	RiskLevel          int    `json:"risk_level"`
	Category           string `json:"category"`
	Reason             string `json:"reason"`
	FurtherInvestigate bool   `json:"further_investigate"`
	SourceURL          string `json:"source_url,omitempty"`
	Timestamp          string `json:"timestamp"`
}

// ScanReport 一次扫描周期的汇总
type ScanReport struct {
	ScanID         string         `json:"scan_id"`
	Timestamp      string         `json:"timestamp"`
	Summary        string         `json:"summary"`
	Topics         []RiskItem     `json:"topics"`
	ReportCount    int            `json:"report_count"`
	TotalRiskItems int            `json:"total_risk_items"`
	PerSource      map[string]int `json:"per_source,omitempty"`
}

// DecisionItem 决策阶段的风险条目
type DecisionItem struct {
	Title  string `json:"title"`
	Reason string `json:"reason"`
	Level  string `json:"level"`
}

// ResearchAction 是否发起深度调研
type ResearchAction struct {
	ShouldCall     bool     `json:"should_call"`
	TargetTopics   []string `json:"target_topics,omitempty"`
	SearchKeywords []string `json:"search_keywords,omitempty"`
}

// FrequencyAction 是否调整扫描频率
type FrequencyAction struct {
	ShouldAdjust bool `json:"should_adjust"`
	NewInterval  int  `json:"new_interval,omitempty"`
}

// AlertAction 是否向用户发出预警
type AlertAction struct {
	ShouldAlert  bool   `json:"should_alert"`
	AlertMessage string `json:"alert_message,omitempty"`
}

// Actions 决策动作
type Actions struct {
	Research        ResearchAction  `json:"call_vcs"`
	AdjustFrequency FrequencyAction `json:"adjust_frequency"`
	TriggerAlert    AlertAction     `json:"trigger_alert"`
}

// MemoryUpdate 需要写入决策记忆的关键风险
type MemoryUpdate struct {
	KeyRisksToSave []string `json:"key_risks_to_save"`
}

// Decision 决策引擎的输出
type Decision struct {
	RiskSummary     string         `json:"risk_summary"`
	RiskItems       []DecisionItem `json:"risk_items"`
	GlobalRiskLevel string         `json:"global_risk_level"`
	Confidence      float64        `json:"confidence"`
	Actions         Actions        `json:"actions"`
	MemoryUpdate    MemoryUpdate   `json:"memory_update"`
	// Fallback 标记该决策由降级逻辑生成
	Fallback bool `json:"fallback,omitempty"`
}

// KeywordPlan 单个关键词的爬取参数
type KeywordPlan struct {
	Keyword         string `json:"keyword"`
	MaxVideoCount   int    `json:"max_video_count"`
	MaxCommentCount int    `json:"max_comment_count"`
}

// CrawlPlan 一个话题的爬取计划
type CrawlPlan struct {
	Keywords  []KeywordPlan `json:"keywords_config"`
	Platforms []string      `json:"platforms"`
	Retries   int           `json:"retries"`
}

// MediaComment 一条评论
type MediaComment struct {
	ID        string `json:"comment_id"`
	Content   string `json:"content"`
	User      string `json:"user"`
	Likes     int    `json:"like_count"`
	CreatedAt string `json:"publish_time"`
}

// MediaItem 一条视频/帖子
type MediaItem struct {
	ID         string         `json:"id"`
	Platform   string         `json:"platform"`
	Title      string         `json:"title"`
	Content    string         `json:"content"`
	Author     string         `json:"author"`
	URL        string         `json:"url"`
	Likes      int            `json:"likes"`
	Views      int            `json:"views"`
	Comments   []MediaComment `json:"comments"`
	CreateTime string         `json:"create_time"`
}

// MediaBundle 一次关键词检索的结果
type MediaBundle struct {
	Keyword       string      `json:"keyword"`
	Platform      string      `json:"platform"`
	Items         []MediaItem `json:"items"`
	TotalItems    int         `json:"total_items"`
	TotalComments int         `json:"total_comments"`
}

// Sentiment 情绪分布
type Sentiment struct {
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
}

// RiskAssessment 风险评估
type RiskAssessment struct {
	Level   string   `json:"level"`
	Factors []string `json:"factors"`
}

// SubReport 单个关键词的小报告
type SubReport struct {
	Keyword         string         `json:"keyword"`
	Plan            KeywordPlan    `json:"keyword_config"`
	Summary         string         `json:"summary"`
	KeyFindings     []string       `json:"key_findings"`
	Sentiment       Sentiment      `json:"sentiment_analysis"`
	RiskAssessment  RiskAssessment `json:"risk_assessment"`
	TrendPrediction string         `json:"trend_prediction"`
	Recommendations []string       `json:"recommendations"`
	ConfidenceScore float64        `json:"confidence_score"`
	DataCount       int            `json:"data_count"`
	CommentCount    int            `json:"comment_count"`
	// CrawlErrors 记录 平台 -> 错误 的爬取失败
	CrawlErrors map[string]string `json:"crawl_errors,omitempty"`
}

// ImportantVideo 高互动的佐证内容
type ImportantVideo struct {
	Keyword    string `json:"keyword"`
	Platform   string `json:"platform"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Likes      int    `json:"likes"`
	Comments   int    `json:"comments"`
	Views      int    `json:"views"`
	CreateTime string `json:"create_time"`
}

// FinalResearchReport 一个话题的最终调研报告
type FinalResearchReport struct {
	Summary         string           `json:"summary"`
	KeyFindings     []string         `json:"key_findings"`
	Sentiment       Sentiment        `json:"sentiment_analysis"`
	RiskAssessment  RiskAssessment   `json:"risk_assessment"`
	TrendPrediction string           `json:"trend_prediction"`
	Recommendations []string         `json:"recommendations"`
	ConfidenceScore float64          `json:"confidence_score"`
	ImportantVideos []ImportantVideo `json:"important_videos"`
	SourceTopic     string           `json:"source_topic"`
	DataCount       int              `json:"data_count"`
	CommentCount    int              `json:"comment_count"`
	Timestamp       string           `json:"timestamp"`
}

// ResearchRequest 深度调研请求
type ResearchRequest struct {
	RequestID string         `json:"request_id,omitempty"`
	Topic     string         `json:"topic"`
	Priority  string         `json:"priority,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	Level     string         `json:"level,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
}

// ResearchStatistics 调研数据统计
type ResearchStatistics struct {
	TotalPlatforms int `json:"total_platforms"`
	TotalKeywords  int `json:"total_keywords"`
	TotalItems     int `json:"total_items"`
	TotalComments  int `json:"total_comments"`
}

// ResearchResult ProcessTopic 的返回值
type ResearchResult struct {
	Status          string               `json:"status"`
	Topic           string               `json:"topic"`
	Plan            *CrawlPlan           `json:"crawl_config,omitempty"`
	Report          *FinalResearchReport `json:"analysis"`
	SubReports      []SubReport          `json:"sub_reports,omitempty"`
	ImportantVideos []ImportantVideo     `json:"important_videos,omitempty"`
	Statistics      ResearchStatistics   `json:"data_statistics"`
	ReportPath      string               `json:"report_path,omitempty"`
	ExecutionTime   float64              `json:"execution_time"`
	Error           string               `json:"error,omitempty"`
	Timestamp       string               `json:"timestamp"`
}

// ResponseError 请求失败信息
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResponseMetadata 请求元数据
type ResponseMetadata struct {
	RequestID      string             `json:"request_id"`
	Timestamp      string             `json:"timestamp"`
	ProcessingTime float64            `json:"processing_time"`
	ReportPath     string             `json:"report_path,omitempty"`
	Statistics     ResearchStatistics `json:"data_statistics"`
}

// ResearchResponse HandleRequest 的标准化响应
type ResearchResponse struct {
	Status   string           `json:"status"`
	Data     *ResearchResult  `json:"data"`
	Metadata ResponseMetadata `json:"metadata"`
	Error    *ResponseError   `json:"error"`
}

// HotOpinion 热门观点摘录
type HotOpinion struct {
	Topic     string `json:"topic"`
	Summary   string `json:"summary"`
	RiskLevel string `json:"risk_level"`
}

// DigestStats 多话题调研的汇总统计
type DigestStats struct {
	TotalTopics        int `json:"total_topics"`
	TotalDataCount     int `json:"total_data_count"`
	TotalCommentCount  int `json:"total_comment_count"`
	SuccessfulAnalyses int `json:"successful_analyses"`
	KeyFindingsCount   int `json:"key_findings_count"`
	RiskFactorsCount   int `json:"risk_factors_count"`
}

// ResearchDigest 合并多个话题调研结果后的风险评估
type ResearchDigest struct {
	Success        bool         `json:"success"`
	RiskLevel      string       `json:"risk_level"`
	RiskFactors    []string     `json:"risk_factors"`
	KeyFindings    []string     `json:"key_findings"`
	Stats          DigestStats  `json:"stats"`
	HotOpinions    []HotOpinion `json:"hot_opinions"`
	Recommendation string       `json:"recommendation"`
}

// HotspotSource 告警中的扫描来源信息
type HotspotSource struct {
	TopicCount  int    `json:"topic_count"`
	ScanSummary string `json:"scan_summary"`
}

// SourceInfo 告警来源
type SourceInfo struct {
	Hotspot  HotspotSource `json:"hotspot_report"`
	Research *DigestStats  `json:"research,omitempty"`
}

// AlertDetails 告警附带的调研详情
type AlertDetails struct {
	Stats          DigestStats  `json:"stats"`
	HotOpinions    []HotOpinion `json:"hot_opinions"`
	KeyFindings    []string     `json:"key_findings"`
	Recommendation string       `json:"recommendation"`
}

// AlertReport 最终写入告警库的记录
type AlertReport struct {
	AlertID         string        `json:"alert_id"`
	Timestamp       string        `json:"timestamp"`
	AlertLevel      string        `json:"alert_level"`
	RiskLevel       string        `json:"risk_level"`
	Summary         string        `json:"summary"`
	TargetTopics    []string      `json:"target_topics"`
	RiskFactors     []string      `json:"risk_factors"`
	SourceInfo      SourceInfo    `json:"source_info"`
	Actions         *Actions      `json:"actions,omitempty"`
	Recommendations []string      `json:"recommendations"`
	Details         *AlertDetails `json:"details,omitempty"`
	Error           string        `json:"error,omitempty"`
}

// TimeLayout 报告中使用的时间格式
const TimeLayout = "2006-01-02 15:04:05"
