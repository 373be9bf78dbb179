package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Tokens 以半个代币为单位的定点数，避免 0.5 退款带来的浮点误差
type Tokens int64

const (
	HalfToken Tokens = 1
	OneToken  Tokens = 2
)

// WholeTokens n 个整代币
func WholeTokens(n int) Tokens { return Tokens(n) * OneToken }

// Float 对外展示的十进制值
func (t Tokens) Float() float64 { return float64(t) / float64(OneToken) }

func (t Tokens) String() string { return strconv.FormatFloat(t.Float(), 'f', -1, 64) }

func (t Tokens) MarshalJSON() ([]byte, error) { return []byte(t.String()), nil }

func (t *Tokens) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	v, err := TokensFromFloat(f)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// maxExactHalves float64 能精确表示的最大整数
const maxExactHalves = 1 << 53

// TokensFromFloat 仅接受 0.5 的整数倍，且不超出可精确表示的范围
func TokensFromFloat(f float64) (Tokens, error) {
	halves := f * float64(OneToken)
	if math.IsNaN(halves) || math.Abs(halves) > maxExactHalves {
		return 0, fmt.Errorf("token amount %v is out of range", f)
	}
	if halves != math.Trunc(halves) {
		return 0, fmt.Errorf("token amount %v is not a multiple of 0.5", f)
	}
	return Tokens(halves), nil
}
