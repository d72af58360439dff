package parser

import (
	"fmt"
	"strings"
)

// Коды городов специфичны для каждого источника. Отсутствие города в таблице —
// жёсткий отказ поиска по этому источнику (ErrUnknownCity).

var hhTownCodes = map[string]int{
	"Москва":          1,
	"Санкт-Петербург": 2,
	"Екатеринбург":    3,
	"Новосибирск":     4,
	"Владимир":        23,
	"Волгоград":       24,
	"Воронеж":         26,
	"Красноярск":      54,
	"Нижний Новгород": 66,
	"Омск":            68,
	"Пермь":           72,
	"Ростов-на-Дону":  76,
	"Самара":          78,
	"Казань":          88,
	"Уфа":             99,
	"Хабаровск":       102,
	"Челябинск":       104,
	"Краснодар":       1438,
	"Саратов":         1596,
}

var superJobTownCodes = map[string]int{
	"Москва":          4,
	"Новосибирск":     13,
	"Санкт-Петербург": 14,
	"Волгоград":       24,
	"Воронеж":         26,
	"Екатеринбург":    33,
	"Нижний Новгород": 47,
	"Красноярск":      54,
	"Омск":            68,
	"Пермь":           72,
	"Ростов-на-Дону":  76,
	"Самара":          78,
	"Казань":          88,
	"Уфа":             99,
	"Челябинск":       104,
	"Краснодар":       1438,
	"Саратов":         1596,
}

// rabotaTownPrefixes — поддомен площадки для города.
var rabotaTownPrefixes = map[string]string{
	"москва":          "www",
	"санкт-петербург": "spb",
	"брянск":          "bryansk",
	"владивосток":     "vladivostok",
	"екатеринбург":    "ekaterinburg",
	"казань":          "kazan",
	"краснодар":       "krasnodar",
	"красноярск":      "krasnoyarsk",
	"нижний новгород": "nnov",
	"новосибирск":     "nsk",
	"омск":            "omsk",
	"пермь":           "perm",
	"ростов-на-дону":  "rostov",
	"самара":          "samara",
	"уфа":             "ufa",
	"челябинск":       "chelyabinsk",
}

func hhTownCode(city string) (int, error) {
	code, ok := hhTownCodes[city]
	if !ok {
		return 0, fmt.Errorf("%w: %q (HeadHunter)", ErrUnknownCity, city)
	}
	return code, nil
}

func superJobTownCode(city string) (int, error) {
	code, ok := superJobTownCodes[city]
	if !ok {
		return 0, fmt.Errorf("%w: %q (SuperJob)", ErrUnknownCity, city)
	}
	return code, nil
}

func rabotaTownPrefix(city string) (string, error) {
	prefix, ok := rabotaTownPrefixes[strings.ToLower(city)]
	if !ok {
		return "", fmt.Errorf("%w: %q (Rabota.ru)", ErrUnknownCity, city)
	}
	return prefix, nil
}
