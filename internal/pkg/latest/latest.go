// Package latest 提供「按键取最新一行」的归并原语。
//
// 流量快照解析（每个店铺只看最新快照）和商品去重（同一 handle 只留最近更新的一行）
// 都是同一种归并，这里实现一次，两处复用。
package latest

// ByKey 对无序行做分组归并，每个键只保留 newer 判定下最新的一行。
//
// 参数:
//   - rows: 无序输入行
//   - key: 行的分组键
//   - newer: newer(a, b) 为 true 时表示 a 比 b 更新（并列时由调用方用更高 ID 等次级键裁决）
//
// 返回值:
//   - map[K]T: 每个键对应的最新行
func ByKey[T any, K comparable](rows []T, key func(T) K, newer func(a, b T) bool) map[K]T {
	out := make(map[K]T, len(rows))
	for _, row := range rows {
		k := key(row)
		cur, ok := out[k]
		if !ok || newer(row, cur) {
			out[k] = row
		}
	}
	return out
}

// Reduce 与 ByKey 相同，但保持输入顺序返回切片（每个键首次出现的位置）。
func Reduce[T any, K comparable](rows []T, key func(T) K, newer func(a, b T) bool) []T {
	winners := ByKey(rows, key, newer)
	seen := make(map[K]bool, len(winners))
	out := make([]T, 0, len(winners))
	for _, row := range rows {
		k := key(row)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, winners[k])
	}
	return out
}
