// Package region finds the most specific Korean administrative region named
// in a piece of text.
package region

import "strings"

// Seoul districts are the most specific names and are checked first.
var seoulDistricts = []string{
	"강남구", "강동구", "강북구", "강서구", "관악구",
	"광진구", "구로구", "금천구", "노원구", "도봉구",
	"동대문구", "동작구", "마포구", "서대문구", "서초구",
	"성동구", "성북구", "송파구", "양천구", "영등포구",
	"용산구", "은평구", "종로구", "중구", "중랑구",
}

var gyeonggiCities = []string{
	"성남시", "용인시", "수원시", "고양시", "화성시",
	"평택시", "부천시", "안양시", "남양주시",
}

var metropolitan = []string{"인천", "부산", "대구", "대전", "광주", "울산", "세종"}

type tier struct {
	parent string
	names  []string
}

// Scan order matters: "중구" also exists inside metro cities, and a city
// name may appear next to a more specific district.
var tiers = []tier{
	{parent: "서울", names: seoulDistricts},
	{parent: "경기", names: gyeonggiCities},
	{parent: "", names: metropolitan},
}

// Extract returns the first region hit in priority order, formatted as
// "parent child" for districts and cities or the bare metro name.
func Extract(text string) (string, bool) {
	for _, t := range tiers {
		for _, name := range t.names {
			if !strings.Contains(text, name) {
				continue
			}
			if t.parent == "" {
				return name, true
			}
			return t.parent + " " + name, true
		}
	}
	return "", false
}
