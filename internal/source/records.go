package source

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/client-geomap/app/models"
)

// DefaultName is used for rows without a business name
const DefaultName = "이름 없음"

type field int

const (
	fieldName field = iota
	fieldRepresentative
	fieldBusinessType
	fieldCategory
	fieldForm
	fieldAddress
	fieldBusinessNumber
	fieldPhone
	fieldLat
	fieldLng
)

// header aliases in priority order
var headerAliases = map[field][]string{
	fieldName:           {"상호", "상호명", "name"},
	fieldRepresentative: {"대표자", "대표", "representative"},
	fieldBusinessType:   {"업태", "business_type"},
	fieldCategory:       {"종목", "category"},
	fieldForm:           {"구분", "개인/법인", "type"},
	fieldAddress:        {"주소", "address"},
	fieldBusinessNumber: {"사업자번호", "사업자등록번호", "business_number"},
	fieldPhone:          {"전화번호", "전화", "연락처", "phone"},
	fieldLat:            {"lat", "위도", "latitude"},
	fieldLng:            {"lng", "경도", "lon", "longitude"},
}

func indexHeader(header []string) map[field]int {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = strings.ToLower(strings.TrimSpace(h))
	}

	idx := make(map[field]int)
	for f, aliases := range headerAliases {
	search:
		for _, alias := range aliases {
			for i, h := range normalized {
				if h == alias {
					idx[f] = i
					break search
				}
			}
		}
	}
	return idx
}

func rowsToRecords(rows [][]string) []models.ClientRecord {
	records := []models.ClientRecord{}
	if len(rows) < 2 {
		return records
	}

	idx := indexHeader(rows[0])
	cell := func(row []string, f field) string {
		i, ok := idx[f]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}

		rec := models.ClientRecord{
			ID:             fmt.Sprintf("client-%d", i),
			Name:           cell(row, fieldName),
			Representative: cell(row, fieldRepresentative),
			BusinessType:   cell(row, fieldBusinessType),
			Category:       cell(row, fieldCategory),
			Form:           parseForm(cell(row, fieldForm)),
			BusinessNumber: cell(row, fieldBusinessNumber),
			Phone:          cell(row, fieldPhone),
			Address:        cell(row, fieldAddress),
		}
		if rec.Name == "" {
			rec.Name = DefaultName
		}

		if c, ok := parseCoordinate(cell(row, fieldLat), cell(row, fieldLng)); ok {
			rec = rec.WithCoordinate(c)
		}

		records = append(records, rec)
	}
	return records
}

func parseForm(v string) models.BusinessForm {
	if strings.Contains(v, "법인") || strings.EqualFold(v, string(models.FormCorporation)) {
		return models.FormCorporation
	}
	return models.FormIndividual
}

func parseCoordinate(latText, lngText string) (models.Coordinate, bool) {
	if latText == "" || lngText == "" {
		return models.Coordinate{}, false
	}
	lat, err := strconv.ParseFloat(latText, 64)
	if err != nil {
		return models.Coordinate{}, false
	}
	lng, err := strconv.ParseFloat(lngText, 64)
	if err != nil {
		return models.Coordinate{}, false
	}
	if lat == 0 || lng == 0 || math.IsNaN(lat) || math.IsNaN(lng) {
		return models.Coordinate{}, false
	}

	c := models.Coordinate{Lat: lat, Lng: lng}
	return c, c.Valid()
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
