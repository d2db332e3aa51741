package quote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// 东方财富 push2 行情接口字段：f43 最新价、f57 代码、f58 名称。
const eastmoneyFields = "f43,f57,f58"

// EastmoneyClient 通过东方财富 push2 接口获取 A 股实时行情。
type EastmoneyClient struct {
	baseURL string
	client  *http.Client
}

// NewEastmoneyClient 构造行情客户端。
func NewEastmoneyClient(baseURL string, timeout time.Duration) *EastmoneyClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "https://push2.eastmoney.com"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &EastmoneyClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// RealtimeQuote 查询单只股票的实时行情。
// 停牌或无行情时价格字段为 "-"，按无行情处理返回 (nil, nil)。
func (c *EastmoneyClient) RealtimeQuote(ctx context.Context, stockCode string) (*Quote, error) {
	stockCode = strings.TrimSpace(stockCode)
	if stockCode == "" {
		return nil, fmt.Errorf("行情查询: 股票代码不能为空")
	}
	params := url.Values{}
	params.Set("secid", secID(stockCode))
	params.Set("fltt", "2") // 价格返回真实小数
	params.Set("invt", "2")
	params.Set("fields", eastmoneyFields)
	endpoint := c.baseURL + "/api/qt/stock/get?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("行情请求失败 (%s): %w", stockCode, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("行情接口返回异常状态码 %d (%s)", resp.StatusCode, stockCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	return parseEastmoneyQuote(stockCode, body), nil
}

// parseEastmoneyQuote 从 push2 响应中提取行情；缺数据或价格无效时返回 nil。
func parseEastmoneyQuote(stockCode string, body []byte) *Quote {
	data := gjson.GetBytes(body, "data")
	if !data.Exists() || data.Type == gjson.Null {
		return nil
	}
	price := data.Get("f43")
	// 停牌时 f43 为 "-"，Float() 解析为 0，统一按不可用处理。
	if !price.Exists() || price.Float() <= 0 {
		return nil
	}
	name := data.Get("f58").String()
	if name == "" {
		name = fmt.Sprintf("股票%s", stockCode)
	}
	return &Quote{
		StockCode:    stockCode,
		StockName:    name,
		CurrentPrice: price.Float(),
	}
}

// secID 将六位股票代码映射为东方财富 secid：沪市（6 开头）前缀 1，其余前缀 0。
func secID(stockCode string) string {
	if strings.HasPrefix(stockCode, "6") {
		return "1." + stockCode
	}
	return "0." + stockCode
}
