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
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/AleutianAI/ConciergeFOSS/services/dialog/datatypes"
	"github.com/AleutianAI/ConciergeFOSS/services/dialog/orderparse"
)

// =============================================================================
// State Machine
// =============================================================================

// transition applies the resolved intent to the session and produces the
// reply. It is the only code that mutates session state.
//
// The switch is exhaustive over the closed intent tag set; adding an intent
// tag without a case here falls through to the generic re-prompt, which tests
// catch.
func (r *Resolver) transition(ctx context.Context, sess *datatypes.Session, text, locationHint string, res *datatypes.IntentResult) datatypes.ReplyCore {
	switch res.Intent {
	case datatypes.IntentFindNearby:
		return r.findNearby(ctx, sess, locationHint, res, 0)

	case datatypes.IntentRecommend:
		return r.findNearby(ctx, sess, locationHint, res, recommendLimit)

	case datatypes.IntentShowMoreOptions:
		return r.showMore(sess)

	case datatypes.IntentSelectRestaurant:
		return r.selectRestaurant(ctx, sess, res)

	case datatypes.IntentMenuRequest:
		return r.menuRequest(ctx, sess, res)

	case datatypes.IntentCreateOrder:
		return r.createOrder(ctx, sess, text, res)

	case datatypes.IntentConfirmOrder:
		return r.confirmOrder(sess)

	case datatypes.IntentCancelOrder:
		return r.cancelOrder(sess)

	case datatypes.IntentChangeRestaurant:
		sess.ClearPendingOrder()
		sess.LastRestaurant = nil
		sess.LastRestaurantsList = nil
		return replyReprompt("Sure — which restaurant or area instead?")

	case datatypes.IntentConfirm:
		// A bare "yes" with a pending order is a confirmation; without one
		// there is nothing to agree to.
		if sess.PendingOrder != nil {
			return r.confirmOrder(sess)
		}
		return replyReprompt("What would you like — restaurants nearby, a menu, or an order?")

	case datatypes.IntentSmalltalk:
		return replySmalltalk()

	default:
		return replyReprompt("You can ask for restaurants near you, request a menu, or order a dish.")
	}
}

// findNearby resolves a location search and presents the results. A non-zero
// limit caps the result list (the recommend flow).
func (r *Resolver) findNearby(ctx context.Context, sess *datatypes.Session, locationHint string, res *datatypes.IntentResult, limit int) datatypes.ReplyCore {
	location := res.Slots["location"]
	if location == "" {
		location = locationHint
	}
	if location == "" {
		location = sess.LastLocation
	}
	if location == "" {
		return replyReprompt("Which city or area should I search?")
	}

	tags := splitTags(res.Slots["cuisine"])

	results, err := r.restaurants.FindRestaurantsByLocation(ctx, sess, location, tags)
	if err != nil {
		r.logger.Error("location lookup failed",
			"session_id", sess.ID,
			"location", location,
			"error", err)
		return replyReprompt("I couldn't search restaurants right now. Try again in a moment.")
	}
	sess.LastLocation = location

	if len(results) == 0 {
		return r.nearbyFallback(ctx, sess, location, tags)
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return r.presentRestaurants(ctx, sess, results, location)
}

// nearbyFallback handles an empty primary result: neighboring cities are
// tried before giving up with a not-found reply.
func (r *Resolver) nearbyFallback(ctx context.Context, sess *datatypes.Session, location string, tags []string) datatypes.ReplyCore {
	cities, found, err := r.restaurants.NearbyAlternatives(ctx, location, tags)
	if err != nil || len(found) == 0 {
		if err != nil {
			r.logger.Warn("nearby fallback failed", "location", location, "error", err)
		}
		return replyMatchNotFound("restaurants", location, nil)
	}
	reply := r.presentRestaurants(ctx, sess, found, strings.Join(cities, ", "))
	reply.Params["nearby"] = "true"
	reply.Params["searched"] = location
	reply.Message = fmt.Sprintf("Nothing in %s, but nearby: %s", location, reply.Message)
	return reply
}

// presentRestaurants stores the result list on the session, picks the
// follow-up context from the list size, and builds the listing reply.
//
// One result short-circuits straight to selection. More than a page sets the
// show_more context; the numeric-selection booster still works because the
// visible page is the head of LastRestaurantsList.
func (r *Resolver) presentRestaurants(ctx context.Context, sess *datatypes.Session, results []datatypes.Restaurant, location string) datatypes.ReplyCore {
	// A pending order only lives in the confirm context. A new result list
	// moves the session out of it, so the unconfirmed order is abandoned.
	sess.ClearPendingOrder()

	if len(results) == 1 {
		return r.choose(ctx, sess, results[0])
	}

	sess.LastRestaurantsList = results
	if len(results) > r.pageSize {
		sess.ExpectedContext = datatypes.ContextShowMoreOptions
		return replyRestaurantsFound(results[:r.pageSize], location, true)
	}
	sess.ExpectedContext = datatypes.ContextSelectRestaurant
	return replyRestaurantsFound(results, location, false)
}

// showMore advances the restaurant list by one page.
func (r *Resolver) showMore(sess *datatypes.Session) datatypes.ReplyCore {
	list := sess.LastRestaurantsList
	if len(list) == 0 {
		return replyReprompt("There's no list to page through — ask for restaurants near you first.")
	}
	if len(list) <= r.pageSize {
		// Everything is already visible.
		sess.ExpectedContext = datatypes.ContextSelectRestaurant
		return replyReprompt("That's everything I found. Pick one by number or name.")
	}

	rest := list[r.pageSize:]
	sess.LastRestaurantsList = rest
	page := rest
	hasMore := len(rest) > r.pageSize
	if hasMore {
		page = rest[:r.pageSize]
		sess.ExpectedContext = datatypes.ContextShowMoreOptions
	} else {
		sess.ExpectedContext = datatypes.ContextSelectRestaurant
	}
	return replyRestaurantsFound(page, sess.LastLocation, hasMore)
}

// selectRestaurant resolves a selection by visible index or by name.
func (r *Resolver) selectRestaurant(ctx context.Context, sess *datatypes.Session, res *datatypes.IntentResult) datatypes.ReplyCore {
	visible := sess.LastRestaurantsList
	if len(visible) > r.pageSize {
		visible = visible[:r.pageSize]
	}

	if sel := res.Slots["selection"]; sel != "" && len(visible) > 0 {
		n, err := strconv.Atoi(sel)
		if err == nil {
			if n == -1 {
				n = len(visible)
			}
			if n >= 1 && n <= len(visible) {
				return r.choose(ctx, sess, visible[n-1])
			}
		}
		return replyReprompt(fmt.Sprintf("Pick a number between 1 and %d.", len(visible)))
	}

	if name := res.Slots["restaurant_name"]; name != "" {
		found, err := r.restaurants.FindRestaurantByName(ctx, name)
		if err != nil {
			r.logger.Error("restaurant lookup failed", "name", name, "error", err)
			return replyReprompt("I couldn't look that up right now. Try again in a moment.")
		}
		if found == nil {
			return replyMatchNotFound("restaurant", name, nil)
		}
		return r.choose(ctx, sess, *found)
	}

	if len(visible) == 0 {
		return replyReprompt("There's nothing to choose from yet — ask for restaurants near you first.")
	}
	return replyReprompt("Which one — give me a number or the name.")
}

// choose commits a restaurant selection and returns its menu. Any pending
// order is dropped: a selection mid-confirmation means the user moved on, and
// leaving the order behind would let a later bare "yes" commit it against a
// restaurant that is no longer the selected one.
func (r *Resolver) choose(ctx context.Context, sess *datatypes.Session, restaurant datatypes.Restaurant) datatypes.ReplyCore {
	sess.ClearPendingOrder()
	sess.LastRestaurant = &restaurant
	sess.LastRestaurantsList = nil
	sess.ExpectedContext = datatypes.ContextNone

	menu, err := r.restaurants.MenuItems(ctx, restaurant.ID)
	if err != nil {
		r.logger.Warn("menu fetch failed on selection", "restaurant_id", restaurant.ID, "error", err)
		menu = nil
	}
	return replyRestaurantSelected(restaurant, menu)
}

// menuRequest returns the menu for the named or previously selected
// restaurant.
func (r *Resolver) menuRequest(ctx context.Context, sess *datatypes.Session, res *datatypes.IntentResult) datatypes.ReplyCore {
	if name := res.Slots["restaurant_name"]; name != "" {
		found, err := r.restaurants.FindRestaurantByName(ctx, name)
		if err == nil && found != nil {
			sess.LastRestaurant = found
		} else if err == nil {
			return replyMatchNotFound("restaurant", name, nil)
		}
	}
	if sess.LastRestaurant == nil {
		return replyReprompt("Which restaurant's menu would you like?")
	}

	menu, err := r.restaurants.MenuItems(ctx, sess.LastRestaurant.ID)
	if err != nil {
		r.logger.Error("menu fetch failed", "restaurant_id", sess.LastRestaurant.ID, "error", err)
		return replyReprompt("I couldn't fetch that menu right now. Try again in a moment.")
	}
	return replyMenu(*sess.LastRestaurant, menu)
}

// createOrder parses an order utterance against the selected restaurant's
// menu. A parse success replaces any pending order — "actually make it two
// large ones" supersedes, it does not stack.
func (r *Resolver) createOrder(ctx context.Context, sess *datatypes.Session, text string, res *datatypes.IntentResult) datatypes.ReplyCore {
	if sess.LastRestaurant == nil {
		return replyReprompt("Pick a restaurant first, then tell me what to order.")
	}

	orderText := res.Slots["order_text"]
	if orderText == "" {
		orderText = text
	}

	menu, err := r.restaurants.MenuItems(ctx, sess.LastRestaurant.ID)
	if err != nil {
		r.logger.Error("menu fetch failed", "restaurant_id", sess.LastRestaurant.ID, "error", err)
		return replyReprompt("I couldn't check the menu right now. Try again in a moment.")
	}

	parsed := r.parser.ParseItem(ctx, orderText, menu)
	switch parsed.Status {
	case orderparse.StatusOK:
		order := &datatypes.Order{
			ID:           uuid.NewString(),
			RestaurantID: sess.LastRestaurant.ID,
			Items:        []datatypes.ParsedOrderItem{*parsed.Item},
		}
		sess.SetPendingOrder(order)
		return replyOrderPending(order, sess.LastRestaurant.Name)

	case orderparse.StatusMissingSize:
		return replyMissingSize(parsed.DishName, parsed.SizeOptions)

	case orderparse.StatusAmbiguous:
		return replyAmbiguousMatch(orderText, parsed.Candidates)

	default: // StatusUnknownDish
		return replyMatchNotFound("dish", orderText, parsed.Suggestions)
	}
}

// confirmOrder commits the pending order to the cart and returns to idle.
func (r *Resolver) confirmOrder(sess *datatypes.Session) datatypes.ReplyCore {
	if sess.PendingOrder == nil {
		return replyReprompt("There's no pending order to confirm.")
	}
	order := sess.PendingOrder.Clone()
	if sess.Cart == nil {
		sess.Cart = &datatypes.Cart{}
	}
	sess.Cart.Orders = append(sess.Cart.Orders, order)
	sess.ClearPendingOrder()
	return replyOrderCommitted(order, sess.Cart.Total())
}

// cancelOrder drops the pending order, if any, and returns to idle.
func (r *Resolver) cancelOrder(sess *datatypes.Session) datatypes.ReplyCore {
	had := sess.PendingOrder != nil
	sess.ClearPendingOrder()
	if !had {
		return replyReprompt("There's no pending order to cancel.")
	}
	return replyOrderCancelled()
}

// splitTags splits the comma-joined cuisine slot into a tag slice.
func splitTags(joined string) []string {
	if joined == "" {
		return nil
	}
	parts := strings.Split(joined, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}
