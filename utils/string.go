package utils

import (
	"crypto/rand"
	"encoding/json"
)

const randomCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomString 生成指定长度的随机字符串
func RandomString(length uint) string {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	for i, b := range buf {
		buf[i] = randomCharset[int(b)%len(randomCharset)]
	}
	return string(buf)
}

// ParseJSON 将 JSON 字符串解析为对象
func ParseJSON(jsonStr string, v interface{}) error {
	return json.Unmarshal([]byte(jsonStr), v)
}

