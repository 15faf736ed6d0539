package dispatch

import "github.com/jrsteele09/go-product-gateway/oauth2"

// Action is the closed set of operations a connection may request.
type Action int

const (
	ActionUnknown Action = iota
	ActionCreateREST
	ActionListSOAP
	ActionUpdateGRPC
	ActionDeleteGraphQL
)

var actionNames = map[Action]string{
	ActionCreateREST:    "create_rest",
	ActionListSOAP:      "list_soap",
	ActionUpdateGRPC:    "update_grpc",
	ActionDeleteGraphQL: "delete_graphql",
}

// ParseAction maps a wire name to an Action. Unknown names yield ActionUnknown, false.
func ParseAction(name string) (Action, bool) {
	for a, n := range actionNames {
		if n == name {
			return a, true
		}
	}
	return ActionUnknown, false
}

func (a Action) String() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	return "unknown"
}

// RequiredScope is the scope a token must carry to run the action.
func (a Action) RequiredScope() string {
	switch a {
	case ActionCreateREST:
		return oauth2.ScopeCreateProduct
	case ActionListSOAP:
		return oauth2.ScopeReadProduct
	case ActionUpdateGRPC:
		return oauth2.ScopeUpdateProduct
	case ActionDeleteGraphQL:
		return oauth2.ScopeDeleteProduct
	}
	return ""
}
