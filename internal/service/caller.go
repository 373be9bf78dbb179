package service

// Caller 经过认证中间件校验的请求方身份，按请求传递
type Caller struct {
	ID      string
	Email   string
	Campus  string
	IsAdmin bool
}

// pageOf 将页码换算为 offset/limit
func pageOf(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return (page - 1) * pageSize, pageSize
}
