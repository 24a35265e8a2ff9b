package naver

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/factorlab/internal/contracts"
)

// maxFlowPages bounds pagination on the investor flow listing.
const maxFlowPages = 150

// FetchInvestorFlow fetches daily net buying by investor class, walking the
// paginated listing newest-first until the query start date is passed.
func (c *Client) FetchInvestorFlow(ctx context.Context, sec contracts.Security, query contracts.DateRange) ([]contracts.InvestorFlow, error) {
	var allFlows []contracts.InvestorFlow
	noDataPages := 0

	for page := 1; page <= maxFlowPages; page++ {
		select {
		case <-ctx.Done():
			return allFlows, ctx.Err()
		default:
		}

		path := fmt.Sprintf("/item/frgn.naver?code=%s&page=%d", sec.String(), page)
		html, err := c.fetchHTML(ctx, path, nil)
		if err != nil {
			return allFlows, err
		}

		flows, lastDate, hasMore := parseFlowHTML(html, sec, query)
		allFlows = append(allFlows, flows...)

		if !lastDate.IsZero() && lastDate.Before(query.Start) {
			break
		}
		if !hasMore {
			break
		}
		if lastDate.IsZero() {
			noDataPages++
			if noDataPages >= 3 {
				break
			}
		} else {
			noDataPages = 0
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"security": sec.String(),
		"count":    len(allFlows),
	}).Debug("Fetched investor flow")
	return allFlows, nil
}

var flowDateRe = regexp.MustCompile(`^\d{4}\.\d{2}\.\d{2}$`)

// parseFlowHTML parses one listing page. The second type2 table carries the
// data rows: date | close | change | rate | volume | inst | foreign.
func parseFlowHTML(html string, sec contracts.Security, query contracts.DateRange) ([]contracts.InvestorFlow, time.Time, bool) {
	var flows []contracts.InvestorFlow
	var lastDate time.Time

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return flows, lastDate, false
	}

	tables := doc.Find("table.type2")
	if tables.Length() < 2 {
		return flows, lastDate, false
	}

	tables.Eq(1).Find("tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 7 {
			return
		}

		dateText := strings.TrimSpace(cells.Eq(0).Text())
		if !flowDateRe.MatchString(dateText) {
			return
		}

		tradeDate, err := time.Parse("2006-01-02", strings.ReplaceAll(dateText, ".", "-"))
		if err != nil {
			return
		}
		tradeDate = contracts.Day(tradeDate)
		lastDate = tradeDate

		if !query.Contains(tradeDate) {
			return
		}

		instNet := parseSignedNum(cells.Eq(5).Text())
		foreignNet := parseSignedNum(cells.Eq(6).Text())

		flows = append(flows, contracts.InvestorFlow{
			Security:      sec,
			Date:          tradeDate,
			ForeignNet:    foreignNet,
			InstNet:       instNet,
			IndividualNet: -(foreignNet + instNet),
		})
	})

	hasMore := doc.Find(".pgRR").Length() > 0
	return flows, lastDate, hasMore
}

// parseSignedNum parses "+1,234" / "-567" / "-" cell text.
func parseSignedNum(s string) int64 {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "+", "")
	if s == "" || s == "-" {
		return 0
	}
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
