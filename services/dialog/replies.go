// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dialog

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/ConciergeFOSS/services/dialog/datatypes"
)

// =============================================================================
// Reply Builders
// =============================================================================

// Reply builders construct the data-carrying ReplyCore for each transition
// outcome. The Message field is a terse neutral fallback; callers with their
// own reply generation use Kind + Params and ignore it.

func replyRestaurantsFound(page []datatypes.Restaurant, location string, hasMore bool) datatypes.ReplyCore {
	params := map[string]string{
		"count":    fmt.Sprintf("%d", len(page)),
		"location": location,
	}
	msg := fmt.Sprintf("Found %d restaurants near %s.", len(page), location)
	if hasMore {
		params["has_more"] = "true"
		msg += " Say 'more' for more options."
	}
	return datatypes.ReplyCore{
		Kind:        datatypes.ReplyRestaurantsFound,
		Message:     msg,
		Params:      params,
		Restaurants: page,
	}
}

func replyRestaurantSelected(r datatypes.Restaurant, menu []datatypes.MenuItem) datatypes.ReplyCore {
	return datatypes.ReplyCore{
		Kind:    datatypes.ReplyRestaurantSelected,
		Message: fmt.Sprintf("Selected %s in %s.", r.Name, r.City),
		Params: map[string]string{
			"restaurant": r.Name,
			"city":       r.City,
		},
		Restaurants: []datatypes.Restaurant{r},
		MenuItems:   menu,
	}
}

func replyMenu(r datatypes.Restaurant, menu []datatypes.MenuItem) datatypes.ReplyCore {
	return datatypes.ReplyCore{
		Kind:      datatypes.ReplyMenu,
		Message:   fmt.Sprintf("Menu for %s: %d items.", r.Name, len(menu)),
		Params:    map[string]string{"restaurant": r.Name},
		MenuItems: menu,
	}
}

func replyOrderPending(order *datatypes.Order, restaurant string) datatypes.ReplyCore {
	return datatypes.ReplyCore{
		Kind:    datatypes.ReplyOrderPending,
		Message: fmt.Sprintf("That's %.2f at %s. Confirm?", order.Total(), restaurant),
		Params: map[string]string{
			"restaurant": restaurant,
			"total":      fmt.Sprintf("%.2f", order.Total()),
		},
		Order: order,
	}
}

func replyOrderCommitted(order *datatypes.Order, cartTotal float64) datatypes.ReplyCore {
	return datatypes.ReplyCore{
		Kind:    datatypes.ReplyOrderCommitted,
		Message: fmt.Sprintf("Order confirmed. Cart total %.2f.", cartTotal),
		Params: map[string]string{
			"order_total": fmt.Sprintf("%.2f", order.Total()),
			"cart_total":  fmt.Sprintf("%.2f", cartTotal),
		},
		Order: order,
	}
}

func replyOrderCancelled() datatypes.ReplyCore {
	return datatypes.ReplyCore{
		Kind:    datatypes.ReplyOrderCancelled,
		Message: "Order cancelled.",
	}
}

func replyInputInvalid(reason string) datatypes.ReplyCore {
	return datatypes.ReplyCore{
		Kind:    datatypes.ReplyInputInvalid,
		Message: "I couldn't read that. Could you rephrase?",
		Params:  map[string]string{"reason": reason},
	}
}

func replyMatchNotFound(what, query string, suggestions []string) datatypes.ReplyCore {
	msg := fmt.Sprintf("No %s matching %q.", what, query)
	if len(suggestions) > 0 {
		msg += " Did you mean: " + strings.Join(suggestions, ", ") + "?"
	}
	return datatypes.ReplyCore{
		Kind:    datatypes.ReplyMatchNotFound,
		Message: msg,
		Params: map[string]string{
			"what":  what,
			"query": query,
		},
		Suggestions: suggestions,
	}
}

func replyMissingSize(dish string, options []datatypes.SizeVariant) datatypes.ReplyCore {
	codes := make([]string, 0, len(options))
	for _, v := range options {
		codes = append(codes, v.Code)
	}
	msg := fmt.Sprintf("What size %s?", dish)
	if len(codes) > 0 {
		msg = fmt.Sprintf("What size %s? Options: %s.", dish, strings.Join(codes, ", "))
	}
	return datatypes.ReplyCore{
		Kind:        datatypes.ReplyMissingSize,
		Message:     msg,
		Params:      map[string]string{"dish": dish},
		Suggestions: codes,
	}
}

func replyAmbiguousMatch(query string, candidates []datatypes.MenuItem) datatypes.ReplyCore {
	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		names = append(names, c.Name)
	}
	return datatypes.ReplyCore{
		Kind:        datatypes.ReplyAmbiguousMatch,
		Message:     fmt.Sprintf("Which one did you mean by %q: %s?", query, strings.Join(names, " or ")),
		Params:      map[string]string{"query": query},
		Suggestions: names,
	}
}

func replyReprompt(hint string) datatypes.ReplyCore {
	msg := "Sorry, I didn't get that."
	if hint != "" {
		msg += " " + hint
	}
	return datatypes.ReplyCore{
		Kind:    datatypes.ReplyReprompt,
		Message: msg,
		Params:  map[string]string{"hint": hint},
	}
}

func replySmalltalk() datatypes.ReplyCore {
	return datatypes.ReplyCore{
		Kind:    datatypes.ReplySmalltalk,
		Message: "Happy to help. Tell me where you'd like to eat or what you'd like to order.",
	}
}
