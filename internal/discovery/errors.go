package discovery

import "errors"

// ErrStoreUnavailable 表示底层存储不可达。
//
// 候选解析阶段遇到存储故障时整个请求失败，不做部分降级；
// 只有计数路径允许降级为估算值（见 engine.go）。
var ErrStoreUnavailable = errors.New("discovery store unavailable")

// 错误种类字符串，HTTP/CLI 边界用它构造结构化错误对象。
const (
	ErrKindStoreUnavailable = "store_unavailable"
	ErrKindInternal         = "internal"
)

// ErrorKind 返回错误对应的稳定种类字符串。
func ErrorKind(err error) string {
	if errors.Is(err, ErrStoreUnavailable) {
		return ErrKindStoreUnavailable
	}
	return ErrKindInternal
}
