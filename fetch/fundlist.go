package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	eastMoneyListBaseURL = "https://push2.eastmoney.com"
	eastMoneyListPath    = "/api/qt/clist/get"
	// eastMoneyFundBoards are the exchange boards listing ETFs.
	eastMoneyFundBoards   = "b:MK0021,b:MK0022,b:MK0023,b:MK0024,b:MK0827"
	eastMoneyListPageSize = 100
)

// Fund represents an exchange listed fund.
type Fund struct {
	Code string
	Name string
}

// formListURL creates the fund list url for the provided page, pages start at 1.
func (c *EastMoneyClient) formListURL(page int) string {
	params := url.Values{}
	params.Add("pn", fmt.Sprint(page))
	params.Add("pz", fmt.Sprint(eastMoneyListPageSize))
	params.Add("po", "1")
	params.Add("np", "1")
	params.Add("fltt", "2")
	params.Add("invt", "2")
	params.Add("fid", "f12")
	params.Add("fs", eastMoneyFundBoards)
	params.Add("fields", "f12,f14")

	return c.cfg.baseURL(eastMoneyListBaseURL) + eastMoneyListPath + "?" + params.Encode()
}

// ParseFundList parses a fund list page. It returns the funds of the page along
// with the total number of listed funds.
func ParseFundList(body []byte) ([]Fund, int, error) {
	if !gjson.ValidBytes(body) {
		return nil, 0, fmt.Errorf("invalid json")
	}

	data := gjson.GetBytes(body, "data")
	if !data.Exists() || data.Type == gjson.Null {
		return nil, 0, fmt.Errorf("no data in response")
	}

	funds := make([]Fund, 0, eastMoneyListPageSize)
	data.Get("diff").ForEach(func(_, item gjson.Result) bool {
		code := strings.TrimSpace(item.Get("f12").String())
		if code != "" {
			funds = append(funds, Fund{Code: code, Name: item.Get("f14").String()})
		}
		return true
	})

	return funds, int(data.Get("total").Int()), nil
}

// ListFunds retrieves every exchange listed fund page by page. Codes are unique
// and kept in listing order.
func (c *EastMoneyClient) ListFunds(ctx context.Context) ([]Fund, error) {
	seen := make(map[string]struct{})
	funds := make([]Fund, 0)

	for page := 1; ; page++ {
		body, err := get(ctx, c.httpc, c.formListURL(page))
		if err != nil {
			return nil, fmt.Errorf("fetching fund list page %d: %w", page, err)
		}

		listed, total, err := ParseFundList(body)
		if err != nil {
			return nil, fmt.Errorf("parsing fund list page %d: %w", page, err)
		}

		for _, fund := range listed {
			if _, ok := seen[fund.Code]; ok {
				continue
			}
			seen[fund.Code] = struct{}{}
			funds = append(funds, fund)
		}

		if len(listed) == 0 || page*eastMoneyListPageSize >= total {
			break
		}
	}

	if len(funds) == 0 {
		return nil, fmt.Errorf("no funds listed")
	}

	return funds, nil
}
