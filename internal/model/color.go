package model

import (
	"strconv"
	"strings"
)

const (
	defaultColorHex = "#000000"
	opaqueAlpha     = 0xFF000000
)

// ColorInfo описывает цвет товара: название и RGB в шестнадцатеричном виде.
type ColorInfo struct {
	Name string
	Hex  string
}

// ColorFromRecord строит ColorInfo из записи. Отсутствующие и некорректные поля заменяются значениями по умолчанию.
func ColorFromRecord(rec map[string]any) ColorInfo {
	c := ColorInfo{Hex: defaultColorHex}
	if name, ok := rec["name"].(string); ok {
		c.Name = name
	}
	if hex, ok := rec["hex"].(string); ok {
		c.Hex = hex
	}
	return c
}

// ToRecord возвращает запись вида {name, hex}.
func (c ColorInfo) ToRecord() map[string]any {
	return map[string]any{
		"name": c.Name,
		"hex":  c.Hex,
	}
}

// ARGB раскрывает Hex в 32-битный ARGB с непрозрачным альфа-каналом.
// Некорректная строка даёт чёрный цвет.
func (c ColorInfo) ARGB() uint32 {
	hex := strings.TrimPrefix(strings.TrimSpace(c.Hex), "#")
	if len(hex) != 6 {
		return opaqueAlpha
	}
	rgb, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return opaqueAlpha
	}
	return opaqueAlpha | uint32(rgb)
}

// ARGBHex возвращает ARGB в виде восьмизначной строки, например "FFAABBCC".
func (c ColorInfo) ARGBHex() string {
	s := strings.ToUpper(strconv.FormatUint(uint64(c.ARGB()), 16))
	return strings.Repeat("0", 8-len(s)) + s
}
