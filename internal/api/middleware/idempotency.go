package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/SubSh2004/CampusZon-sub000/pkg/errcode"
	"github.com/SubSh2004/CampusZon-sub000/pkg/logger"
	"github.com/SubSh2004/CampusZon-sub000/pkg/response"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	ReplayedHeader    = "Idempotent-Replayed"

	stateInFlight = "in_flight"
	stateDone     = "done"

	// 进行中标记的存活时间，进程崩溃后该 key 最多锁住这么久
	inFlightTTL = 2 * time.Minute
)

// storedResponse 已完成请求的响应快照
type storedResponse struct {
	State       string `json:"state"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

type captureWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency 基于客户端 Idempotency-Key 的服务端去重：
// 同一个 key 并发到达时后到者得到 CONFLICT，已完成的请求直接重放响应。
// 5xx 的结果不保存，允许客户端重试。
func Idempotency(rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(IdempotencyHeader))
		if rdb == nil || key == "" {
			c.Next()
			return
		}
		if len(key) > 128 {
			response.Abort(c, errcode.New(errcode.KindInvalidArgument, "idempotency key too long"))
			return
		}

		owner := "anon"
		if caller, ok := CallerFrom(c); ok {
			owner = caller.ID
		}
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		rkey := "idem:" + owner + ":" + c.Request.Method + ":" + path + ":" + key
		ctx := c.Request.Context()

		pending, _ := json.Marshal(storedResponse{State: stateInFlight})
		acquired, err := rdb.SetNX(ctx, rkey, pending, inFlightTTL).Result()
		if err != nil {
			logger.Warn("idempotency store unavailable", zap.Error(err))
			c.Next()
			return
		}

		if !acquired {
			replay(c, rdb, rkey)
			return
		}

		// handler panic 或 5xx 时释放 key，panic 继续向外传给 Recovery
		stored := false
		defer func() {
			if !stored {
				_ = rdb.Del(context.WithoutCancel(ctx), rkey).Err()
			}
		}()

		w := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		status := w.Status()
		if status >= http.StatusInternalServerError {
			return
		}
		done, err := json.Marshal(storedResponse{
			State:       stateDone,
			Status:      status,
			ContentType: w.Header().Get("Content-Type"),
			Body:        w.buf.Bytes(),
		})
		if err == nil {
			err = rdb.Set(ctx, rkey, done, ttl).Err()
		}
		if err != nil {
			logger.Warn("idempotency store write failed", zap.String("key", rkey), zap.Error(err))
			return
		}
		stored = true
	}
}

func replay(c *gin.Context, rdb *redis.Client, rkey string) {
	raw, err := rdb.Get(c.Request.Context(), rkey).Bytes()
	if err != nil {
		response.Abort(c, errcode.New(errcode.KindConflict, "request with this idempotency key is in progress"))
		return
	}
	var stored storedResponse
	if err := json.Unmarshal(raw, &stored); err != nil || stored.State != stateDone {
		response.Abort(c, errcode.New(errcode.KindConflict, "request with this idempotency key is in progress"))
		return
	}
	c.Header(ReplayedHeader, "true")
	contentType := stored.ContentType
	if contentType == "" {
		contentType = "application/json; charset=utf-8"
	}
	c.Data(stored.Status, contentType, stored.Body)
	c.Abort()
}
