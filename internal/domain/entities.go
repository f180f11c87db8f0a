package domain

// ChannelType определяет транспорт доставки сообщений подписчику.
type ChannelType string

const (
	// ChannelTelegram — доставка через Telegram Bot API.
	ChannelTelegram ChannelType = "telegram"
	// ChannelMax — доставка через MAX Bot API.
	ChannelMax ChannelType = "max"
)

// NewsStatus описывает стадию жизненного цикла новости.
type NewsStatus string

const (
	StatusNew       NewsStatus = "new"
	StatusFiltered  NewsStatus = "filtered"
	StatusRejected  NewsStatus = "rejected"
	StatusPublished NewsStatus = "published"
)

// BroadcastType определяет тип рассылки.
type BroadcastType string

const (
	BroadcastMorning BroadcastType = "morning"
	BroadcastEvening BroadcastType = "evening"
	BroadcastUrgent  BroadcastType = "urgent"
)

// NewsItem представляет новость в хранилище. Временные метки — unix-миллисекунды,
// как в файлах на диске.
type NewsItem struct {
	ID              string     `json:"id"`
	Source          string     `json:"source"`
	SourceURL       string     `json:"sourceUrl"`
	Title           string     `json:"title"`
	Content         string     `json:"content"`
	OriginalContent string     `json:"originalContent,omitempty"`
	TitleHash       string     `json:"titleHash"`
	ContentHash     string     `json:"contentHash"`
	RelevanceScore  int        `json:"relevanceScore,omitempty"`
	IsRelevant      bool       `json:"isRelevant,omitempty"`
	AIReason        string     `json:"aiReason,omitempty"`
	Status          NewsStatus `json:"status"`
	CreatedAt       int64      `json:"createdAt"`
	PublishedAt     int64      `json:"publishedAt,omitempty"`
}

// NewsFile — коллекция новостей целиком.
type NewsFile struct {
	Items      []NewsItem `json:"items"`
	LastParsed int64      `json:"lastParsed,omitempty"`
}

// Subscriber хранит состояние подписки. Ключ в коллекции — channel_rawID.
type Subscriber struct {
	Subscribed    bool        `json:"subscribed"`
	SubscribedAt  int64       `json:"subscribedAt"`
	LastBroadcast int64       `json:"lastBroadcast,omitempty"`
	Channel       ChannelType `json:"channel"`
	Blocked       bool        `json:"blocked"`
}

// UsersFile — коллекция подписчиков.
type UsersFile map[string]Subscriber

// Settings — операторские настройки рассылки.
type Settings struct {
	TelegramChannels  []string `json:"telegramChannels"`
	BroadcastTimes    []string `json:"broadcastTimes"`
	AdminUsers        []string `json:"adminUsers"`
	LastBroadcast     int64    `json:"lastBroadcast,omitempty"`
	MaxNewsPerDigest  int      `json:"maxNewsPerDigest"`
	MinRelevanceScore int      `json:"minRelevanceScore"`
}

// PublicationRecord — запись журнала рассылок, одна на запуск. NewsID содержит
// идентификаторы разосланных новостей через запятую. Журнал только дописывается.
type PublicationRecord struct {
	RunID          string        `json:"runId"`
	NewsID         string        `json:"newsId"`
	BroadcastType  BroadcastType `json:"broadcastType"`
	SentAt         int64         `json:"sentAt"`
	RecipientCount int           `json:"recipientCount"`
}

// PublishedFile — журнал рассылок целиком.
type PublishedFile struct {
	Records []PublicationRecord `json:"records"`
}

// Candidate — новость, только что полученная из источника, до дедупликации.
type Candidate struct {
	Source      string
	URL         string
	Title       string
	Content     string
	PublishedAt int64
}

// Classification — результат оценки релевантности внешним классификатором.
type Classification struct {
	Score      int    `json:"score"`
	IsRelevant bool   `json:"is_relevant"`
	Reason     string `json:"reason"`
}

// Rewrite — результат переписывания новости.
type Rewrite struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ParseStats — итог одного цикла парсинга.
type ParseStats struct {
	Parsed   int `json:"parsed"`
	Unique   int `json:"unique"`
	Relevant int `json:"relevant"`
	Rejected int `json:"rejected"`
}

// BroadcastResult — итог одной рассылки.
type BroadcastResult struct {
	Sent         int      `json:"sent"`
	Failed       int      `json:"failed"`
	NewsCount    int      `json:"newsCount"`
	BlockedUsers []string `json:"blockedUsers,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// BroadcastJob — задача на рассылку в очереди.
type BroadcastJob struct {
	ID          string        `json:"id"`
	Type        BroadcastType `json:"type"`
	NewsIDs     []string      `json:"newsIds,omitempty"`
	RequestedAt int64         `json:"requestedAt"`
}

// BotStatus — сводка состояния бота для администратора.
type BotStatus struct {
	Subscribers    int   `json:"subscribers"`
	Blocked        int   `json:"blocked"`
	TotalNews      int   `json:"totalNews"`
	PublishedToday int   `json:"publishedToday"`
	LastParsed     int64 `json:"lastParsed,omitempty"`
	LastBroadcast  int64 `json:"lastBroadcast,omitempty"`
}

// PeriodStats — аналитика за период.
type PeriodStats struct {
	Period            string `json:"period"`
	NewsTotal         int    `json:"newsTotal"`
	NewsPublished     int    `json:"newsPublished"`
	NewsRejected      int    `json:"newsRejected"`
	BroadcastsSent    int    `json:"broadcastsSent"`
	SubscribersGained int    `json:"subscribersGained"`
	SubscribersLost   int    `json:"subscribersLost"`
}
