package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"smartline/internal/model"
)

// RejectMessageOnUnavailable controls what happens when one parsed block
// ends up with no orderable items: true rejects the whole message even if
// other blocks would have succeeded. Product has not decided whether the
// all-or-nothing behavior is intended, so it lives here as a single switch
// instead of inside the pipeline logic.
const RejectMessageOnUnavailable = true

// AddressUnspecified marks orders whose text and profile both carried no
// delivery address.
const AddressUnspecified = "unspecified"

// fallbackUserName is the owner name for admin-entered orders whose text
// named no addressee.
const fallbackUserName = "customer"

// Pipeline turns one raw free-text message into zero or more priced orders.
// One invocation per message; callers serialize invocations per session.
// Prices are frozen at observed-value time: a catalog upsert between price
// resolution and persistence is accepted.
type Pipeline struct {
	parser   TextParser
	catalog  *CatalogService
	ledger   *LedgerService
	messages *MessageService
	// hints maps an address keyword to a region name, used when the parsed
	// block names no region.
	hints map[string]string
	now   func() time.Time
}

func NewPipeline(parser TextParser, catalog *CatalogService, ledger *LedgerService, messages *MessageService, hints map[string]string) *Pipeline {
	return &Pipeline{
		parser:   parser,
		catalog:  catalog,
		ledger:   ledger,
		messages: messages,
		hints:    hints,
		now:      time.Now,
	}
}

// ProcessMessage runs the whole ingestion call. On success every created
// order has been persisted in parse order and one confirmation has been
// logged per order. On any failure nothing is persisted to the ledger and
// the typed error describes why.
func (p *Pipeline) ProcessMessage(ctx context.Context, caller model.UserProfile, text string) ([]model.Order, error) {
	p.log(ctx, model.SenderUser, text)

	blocks, err := p.parser.ParseOrders(ctx, text)
	if err != nil {
		p.log(ctx, model.SenderBot, "Sorry, I could not understand that message.")
		return nil, err
	}

	prices, err := p.catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	available := make(map[string]bool)
	for _, pr := range prices {
		if pr.IsAvailable {
			available[pr.ItemName] = true
		}
	}

	var orders []model.Order
	for _, block := range blocks {
		if len(block.Items) == 0 {
			continue
		}

		kept := make([]model.OrderItem, 0, len(block.Items))
		rejected := ""
		for _, item := range block.Items {
			if caller.Role.CanOrderAnyItem() || available[item.Name] {
				kept = append(kept, item)
			} else if rejected == "" {
				rejected = item.Name
			}
		}
		if len(kept) == 0 && RejectMessageOnUnavailable {
			notOffered := &ItemNotOfferedError{Item: block.Items[0].Name}
			if rejected != "" {
				notOffered.Item = rejected
			}
			p.log(ctx, model.SenderBot, notOffered.Error())
			return nil, notOffered
		}
		if len(kept) == 0 {
			continue
		}

		region := block.Region
		address := block.Address
		if address == "" {
			address = caller.Address
		}
		if address == "" {
			address = AddressUnspecified
		}
		if region == "" {
			region = p.regionFromAddress(address)
		}

		total := 0.0
		for i, item := range kept {
			if item.Price <= 0 {
				kept[i].Price = ResolvePrice(prices, item.Name, region)
			}
			total += kept[i].Price * float64(kept[i].Quantity)
		}

		orders = append(orders, model.Order{
			ID:          uuid.NewString(),
			UserName:    p.ownerName(caller, block),
			Address:     address,
			Region:      region,
			Items:       kept,
			TotalAmount: total,
			RawText:     text,
			Timestamp:   p.now().UnixMilli(),
			Status:      model.StatusPending,
			IsFlagged:   false,
		})
	}

	for _, order := range orders {
		if err := p.ledger.Create(ctx, order); err != nil {
			return nil, err
		}
	}
	for _, order := range orders {
		p.log(ctx, model.SenderBot, FormatConfirmation(order))
	}
	return orders, nil
}

// ownerName applies the naming rule: members always own their orders under
// their own username, admins record whatever addressee the text carried.
func (p *Pipeline) ownerName(caller model.UserProfile, block model.ParsedOrder) string {
	if !caller.Role.SeesAllOrders() {
		return caller.Username
	}
	if block.UserName != "" {
		return block.UserName
	}
	return fallbackUserName
}

func (p *Pipeline) regionFromAddress(address string) string {
	for keyword, region := range p.hints {
		if strings.Contains(address, keyword) {
			return region
		}
	}
	return model.RegionAll
}

// log appends to the chat log best effort; a failed log entry never fails
// the ingestion call.
func (p *Pipeline) log(ctx context.Context, sender model.Sender, text string) {
	if _, err := p.messages.Append(ctx, sender, text); err != nil {
		slog.Warn("chat log append failed", "error", err)
	}
}

// FormatConfirmation renders the itemized, human-readable reply for one
// created order.
func FormatConfirmation(o model.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order received for %s (%s, %s)\n", o.UserName, o.Address, o.Region)
	for _, item := range o.Items {
		fmt.Fprintf(&b, "- %s x%d @ %.0f\n", item.Name, item.Quantity, item.Price)
	}
	fmt.Fprintf(&b, "Total: %.0f", o.TotalAmount)
	return b.String()
}
