package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/xmcrm/wealth-mcp/internal/modules/customers"
	"github.com/xmcrm/wealth-mcp/internal/modules/products"
	"github.com/xmcrm/wealth-mcp/internal/modules/suitability"
)

const (
	serverName    = "XiamenBankCrm"
	serverVersion = "1.0.0"
)

// Tools binds the three CRM tools to their repositories and service.
type Tools struct {
	customerRepo *customers.Repository
	productRepo  *products.Repository
	suitability  *suitability.Service
	log          zerolog.Logger
}

// NewTools creates the tool handler set
func NewTools(
	customerRepo *customers.Repository,
	productRepo *products.Repository,
	suitabilitySvc *suitability.Service,
	log zerolog.Logger,
) *Tools {
	return &Tools{
		customerRepo: customerRepo,
		productRepo:  productRepo,
		suitability:  suitabilitySvc,
		log:          log.With().Str("component", "tools").Logger(),
	}
}

// NewMCPServer builds the MCP server with all tools registered and the
// authentication middleware applied to every call.
func NewMCPServer(tools *Tools, auth *Authenticator) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer(
		serverName,
		serverVersion,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
		mcpserver.WithToolHandlerMiddleware(auth.Middleware),
	)

	s.AddTool(mcp.NewTool("search_customers",
		mcp.WithDescription("搜索客户详情。支持按客户ID（精确）、姓名（模糊搜索）或身份证号（完整或脱敏）查询。返回包含基础信息、风险偏好和财务目标的客户列表。"),
		mcp.WithNumber("customer_id", mcp.Description("客户ID，精确匹配")),
		mcp.WithString("name", mcp.Description("客户姓名，模糊搜索")),
		mcp.WithString("id_card", mcp.Description("身份证号，完整号码或脱敏号码均可")),
	), tools.handleSearchCustomers)

	s.AddTool(mcp.NewTool("search_wealth_products",
		mcp.WithDescription("全面检索理财产品库。支持的筛选条件：sales_type（自营、代销）、product_type（结构性存款、理财、基金、保险、资管、信托、商业养老金）、product_status（在售、存续，默认'在售'）、fund_raising（公募、私募）、risk_level（低风险、偏低风险、中等风险、偏高风险、高风险）、issuer（发行机构，模糊）、max_min_purchase（最高起售金额）、product_name（产品名称，模糊）、product_code（产品代码）。"),
		mcp.WithString("product_name", mcp.Description("产品名称，模糊搜索")),
		mcp.WithString("product_code", mcp.Description("产品代码，精确匹配")),
		mcp.WithString("sales_type", mcp.Description("销售类型：自营、代销")),
		mcp.WithString("product_type", mcp.Description("产品类型")),
		mcp.WithString("product_status", mcp.Description("产品状态，默认'在售'；传空字符串可检索全部状态")),
		mcp.WithString("fund_raising", mcp.Description("募集方式：公募、私募")),
		mcp.WithString("risk_level", mcp.Description("产品风险等级")),
		mcp.WithString("issuer", mcp.Description("发行机构，模糊搜索")),
		mcp.WithNumber("max_min_purchase", mcp.Description("最高起售金额，过滤客户买得起的产品")),
		mcp.WithNumber("limit", mcp.Description("返回条数上限，默认10")),
	), tools.handleSearchWealthProducts)

	s.AddTool(mcp.NewTool("analyze_suitability",
		mcp.WithDescription("自动化执行风险与偏好匹配分析。检查产品风险是否超过客户承受能力，以及可用资金是否满足起购点。"),
		mcp.WithNumber("customer_id", mcp.Required(), mcp.Description("客户ID")),
		mcp.WithString("product_code", mcp.Required(), mcp.Description("产品代码")),
	), tools.handleAnalyzeSuitability)

	return s
}

func (t *Tools) handleSearchCustomers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	q := customers.Query{
		Name:   stringArg(args, "name"),
		IDCard: stringArg(args, "id_card"),
	}
	if id, ok := intArg(args, "customer_id"); ok {
		q.CustomerID = &id
	}

	results, err := t.customerRepo.Search(ctx, q)
	if err != nil {
		t.log.Error().Err(err).Msg("Customer search failed")
		return errorResult(http.StatusInternalServerError, "internal error"), nil
	}

	return jsonResult(results)
}

func (t *Tools) handleSearchWealthProducts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	f := products.NewFilter()
	f.ProductName = stringArg(args, "product_name")
	f.ProductCode = stringArg(args, "product_code")
	f.SalesType = stringArg(args, "sales_type")
	f.ProductType = stringArg(args, "product_type")
	f.FundRaising = stringArg(args, "fund_raising")
	f.RiskLevel = stringArg(args, "risk_level")
	f.Issuer = stringArg(args, "issuer")

	// The on-sale default applies only when the argument is absent; an
	// explicit value (including "") overrides it.
	if raw, present := args["product_status"]; present {
		status, _ := raw.(string)
		f.ProductStatus = status
	}

	if ceiling, ok := floatArg(args, "max_min_purchase"); ok {
		f.MaxMinPurchase = &ceiling
	}
	if limit, ok := intArg(args, "limit"); ok && limit > 0 {
		f.Limit = int(limit)
	}

	results, err := t.productRepo.Search(ctx, f)
	if err != nil {
		t.log.Error().Err(err).Msg("Product search failed")
		return errorResult(http.StatusInternalServerError, "internal error"), nil
	}

	return jsonResult(results)
}

func (t *Tools) handleAnalyzeSuitability(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	customerID, ok := intArg(args, "customer_id")
	if !ok {
		return errorResult(http.StatusBadRequest, "customer_id is required"), nil
	}
	productCode := stringArg(args, "product_code")
	if productCode == "" {
		return errorResult(http.StatusBadRequest, "product_code is required"), nil
	}

	result, err := t.suitability.Analyze(ctx, customerID, productCode)
	if err != nil {
		var notFound *suitability.NotFoundError
		if errors.As(err, &notFound) {
			// Expected outcome, reported as inspectable data
			switch notFound.Entity {
			case "customer":
				return errorResult(http.StatusNotFound, "Customer not found"), nil
			default:
				return errorResult(http.StatusNotFound, "Product not found"), nil
			}
		}
		t.log.Error().Err(err).Msg("Suitability analysis failed")
		return errorResult(http.StatusInternalServerError, "internal error"), nil
	}

	return jsonResult(result)
}

// jsonResult marshals data into a text tool result.
func jsonResult(data any) (*mcp.CallToolResult, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool result: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}

// errorResult renders the error mapping callers branch on:
// {"error": <message>, "code": <numeric>}.
func errorResult(code int, message string) *mcp.CallToolResult {
	payload, _ := json.Marshal(map[string]any{
		"error": message,
		"code":  code,
	})
	return mcp.NewToolResultText(string(payload))
}

// Argument extraction. JSON numbers arrive as float64; ids and limits are
// truncated to integers the way the store expects them.

func stringArg(args map[string]any, key string) string {
	value, _ := args[key].(string)
	return value
}

func intArg(args map[string]any, key string) (int64, bool) {
	switch v := args[key].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}

func floatArg(args map[string]any, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}
