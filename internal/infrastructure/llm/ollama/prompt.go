package ollama

import (
	"fmt"
	"strings"

	"github.com/curdside/cheese-chat/internal/core/domain"
)

func buildClassifierPrompt(question string, history []domain.ConversationTurn) string {
	return fmt.Sprintf(`You decide whether a customer question about a cheese catalog can be answered by similarity search over product records.
The retrievable product attributes are: cheese_type, cheese_form, brand, price_each, price_per_lb, lb_per_each, case, sku, upc, image_url, source_url.

Mark the question NOT retrievable when:
- it requires aggregate reasoning over the whole catalog, such as superlatives ("most expensive", "heaviest"), which nearest-neighbor search cannot answer correctly;
- it is a greeting or small talk;
- it is off-topic for a cheese catalog.
Otherwise it is retrievable.

Return strict JSON: {"retrievable": true} or {"retrievable": false}. No markdown, no extra keys.

Conversation so far:
%s

Question:
%s`, renderHistory(history, 0), question)
}

func buildFilterPrompt(question string) string {
	return fmt.Sprintf(`You convert a customer's question about cheese products into a metadata filter object.

ONLY use these fields:
- cheese_type: string, e.g. "Parmesan", "Mozzarella". The kind of cheese.
- cheese_form: string, e.g. "Sliced", "Shredded", "Cream", "Crumbled", "Cubed", "Grated", "Shaved", "Wheel". The form the cheese comes in.
- brand: string, e.g. "North Beach", "Galbani", "Schreiber".
- price_each: number. Price per unit.
- price_per_lb: number. Price per pound.
- lb_per_each: number. Pounds per unit.
- case: string ("No" or an integer in string form).
- sku: string. "No" when absent.
- upc: string. "No" when absent.

Rules:
1. For prices, map comparative language to operators: $lt, $lte, $gt, $gte, $eq.
2. Combine multiple constraints with $and.
3. Leave out any field the question does not mention. Never invent values.
4. Never use fields outside the schema above.
5. Return ONLY a valid JSON filter object, nothing else. Return {} when the question has no attribute constraints.

Examples:
Question: Show me cheddar cheeses under $10
Output: {"cheese_type": "Cheddar", "price_each": {"$lt": 10}}

Question: I want blue cheese from brand Saint Agur at most $20 per pound
Output: {"$and": [{"cheese_type": "Blue Cheese"}, {"brand": "Saint Agur"}, {"price_per_lb": {"$lte": 20}}]}

Question:
%s`, question)
}

func buildGroundedPrompt(question string, items []domain.CatalogItem, history []domain.ConversationTurn, window int) string {
	var contextBuilder strings.Builder
	for idx, item := range items {
		contextBuilder.WriteString(fmt.Sprintf(
			"[%d] Product: %s\nType: %s\nBrand: %s\nForm: %s\nDescription: %s\nPrice: $%.2f\nPrice per lb: $%.2f\nLb per unit: %.2f\nCase: %s\nSku: %s\nUpc: %s\nSource: %s\n\n",
			idx+1,
			item.Name,
			item.CheeseType,
			item.Brand,
			item.CheeseForm,
			item.Description,
			item.PriceEach,
			item.PricePerLb,
			item.LbPerEach,
			orNo(item.CaseSize),
			orNo(item.SKU),
			orNo(item.UPC),
			item.SourceURL,
		))
	}

	return fmt.Sprintf(`You are a cheese catalog assistant. Answer the user's question strictly from the product context below and the chat history.
If the context is insufficient to answer, say so explicitly. Always cite the specific products you reference by name.

Chat history:
%s

Context:
%s

User question:
%s`, renderHistory(history, window), contextBuilder.String(), question)
}

func buildConversationalPrompt(question string, history []domain.ConversationTurn, window int) string {
	return fmt.Sprintf(`You are a cheese catalog assistant backed by product search. The current question was not routed to product retrieval.
- If it is a greeting or small talk, answer briefly and warmly.
- If it depends on the previous conversation, use the chat history to answer accurately.
- If it requires an exact aggregate over the whole catalog that search cannot guarantee, say plainly that this assistant answers from product search and cannot guarantee that computation. Do not apologize.
- If it is unrelated to cheese products, state the assistant's scope in one short sentence instead of answering.

Chat history:
%s

User question:
%s`, renderHistory(history, window), question)
}

func renderHistory(history []domain.ConversationTurn, window int) string {
	if window > 0 && len(history) > window {
		history = history[len(history)-window:]
	}
	if len(history) == 0 {
		return "(empty)"
	}
	lines := make([]string, 0, len(history))
	for _, turn := range history {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", turn.Role, content))
	}
	if len(lines) == 0 {
		return "(empty)"
	}
	return strings.Join(lines, "\n")
}

func orNo(value string) string {
	if strings.TrimSpace(value) == "" {
		return "No"
	}
	return value
}
