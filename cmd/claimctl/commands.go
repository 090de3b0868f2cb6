package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/simp-lee/claimdesk/internal/client"
	"github.com/simp-lee/claimdesk/internal/config"
	"github.com/simp-lee/claimdesk/internal/domain"
)

var errUsage = errors.New("usage")

type cli struct {
	api         *client.Client
	cfg         config.ClientConfig
	logger      *slog.Logger
	sessionPath string
	out         io.Writer
	errOut      io.Writer
}

func (c *cli) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return c.login(ctx, args)
	case "logout":
		return c.logout(ctx)
	case "whoami":
		return c.whoami(ctx)
	case "refresh":
		return c.refresh(ctx)
	case "claims":
		return c.claims(ctx, args)
	case "show":
		return c.show(ctx, args)
	case "transition":
		return c.transition(ctx, args)
	case "history":
		return c.history(ctx, args)
	case "stats":
		return c.stats(ctx)
	default:
		return errUsage
	}
}

// notifier routes search and workflow notifications to the log. Errors
// are also returned to dispatch, which prints them for the user.
func (c *cli) notifier() client.Notifier {
	return client.LogNotifier{Logger: c.logger}
}

func (c *cli) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *email == "" || *password == "" {
		return errUsage
	}

	user, err := c.api.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	if err := c.api.Session().Save(c.sessionPath); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "logged in as %s (%s)\n", user.Name, roleName(user.RoleCode))
	return nil
}

func (c *cli) logout(ctx context.Context) error {
	err := c.api.Logout(ctx)
	if rmErr := client.RemoveSession(c.sessionPath); rmErr != nil {
		return rmErr
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, "logged out")
	return nil
}

func (c *cli) refresh(ctx context.Context) error {
	user, err := c.api.Refresh(ctx)
	if err != nil {
		return err
	}
	if err := c.api.Session().Save(c.sessionPath); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "session for %s renewed until %s\n", user.Name, c.api.Session().ExpiresAt().UTC().Format(time.RFC3339))
	return nil
}

func (c *cli) whoami(ctx context.Context) error {
	if _, ok := c.api.Session().User(); !ok {
		return errors.New("not logged in")
	}
	u, err := c.api.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%d\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, roleName(u.RoleCode))
	return nil
}

// scopeEndpoints maps a -scope value to its search endpoint.
var scopeEndpoints = map[string]string{
	"all":      client.EndpointClaims,
	"mine":     client.EndpointClaimerClaims,
	"approval": client.EndpointApprovalClaims,
	"finance":  client.EndpointFinanceClaims,
}

// defaultScope picks the claim list a role normally works from.
func defaultScope(role string) string {
	switch role {
	case domain.RoleAdmin:
		return "all"
	case domain.RoleApprover:
		return "approval"
	case domain.RoleFinance:
		return "finance"
	default:
		return "mine"
	}
}

func (c *cli) claims(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("claims", flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	scope := fs.String("scope", "", "all, mine, approval or finance (default by role)")
	keyword := fs.String("q", "", "keyword")
	status := fs.String("status", "", "claim status filter")
	project := fs.String("project", "", "project id filter")
	page := fs.Int("page", 1, "page number")
	size := fs.Int("size", c.cfg.EffectivePageSize(), "page size")
	sort := fs.String("sort", "", "sort, for example id:desc")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if *scope == "" {
		*scope = defaultScope(c.api.Session().Role())
	}
	endpoint, ok := scopeEndpoints[*scope]
	if !ok {
		return fmt.Errorf("unknown scope %q", *scope)
	}
	if *status != "" {
		if _, err := domain.ParseClaimStatus(*status); err != nil {
			return err
		}
	}

	opts := []client.SearchOption{
		client.WithDebounce(c.cfg.DebounceDuration()),
		client.WithPageSize(*size),
		client.WithNotifier(c.notifier()),
		client.WithTitle("claims"),
	}
	if *sort != "" {
		opts = append(opts, client.WithSort(*sort))
	}
	search := client.NewSearchClient[domain.Claim](c.api, endpoint, opts...)
	defer search.Close()

	search.SetKeyword(*keyword)
	search.SetFilter("claim_status", *status)
	search.SetFilter("project_id", *project)
	// SetPage fetches at once, replacing the debounced fetch queued above.
	if err := search.SetPage(ctx, *page); err != nil {
		return err
	}

	st := search.State()
	printClaims(c.out, st.Items)
	fmt.Fprintf(c.out, "page %d/%d, %d claims\n", st.Query.PageNum, max(st.TotalPages, 1), st.TotalItems)
	return nil
}

func printClaims(w io.Writer, claims []domain.Claim) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPROJECT\tSTATUS\tHOURS\tPERIOD")
	for _, cl := range claims {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%.1f\t%s..%s\n",
			cl.ID, cl.Name, cl.ProjectID, cl.Status, cl.TotalHours,
			cl.StartDate.Format("2006-01-02"), cl.EndDate.Format("2006-01-02"))
	}
	_ = tw.Flush()
}

func (c *cli) getClaim(ctx context.Context, id uint) (domain.Claim, error) {
	var cl domain.Claim
	err := c.api.Do(ctx, http.MethodGet, "/claims/"+strconv.FormatUint(uint64(id), 10), nil, &cl)
	return cl, err
}

func (c *cli) show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	cl, err := c.getClaim(ctx, id)
	if err != nil {
		return err
	}
	printClaims(c.out, []domain.Claim{cl})
	if cl.Comment != "" {
		fmt.Fprintf(c.out, "comment: %s\n", cl.Comment)
	}

	if cl.Status.Terminal() {
		fmt.Fprintln(c.out, "final: no further actions")
		return nil
	}
	flow := client.NewWorkflow(c.api, nil, client.WithWorkflowNotifier(c.notifier()))
	if actions := flow.Allowed(cl); len(actions) > 0 {
		names := make([]string, len(actions))
		for i, a := range actions {
			names[i] = string(a)
		}
		fmt.Fprintf(c.out, "actions: %s\n", strings.Join(names, ", "))
	}
	return nil
}

func (c *cli) transition(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	action := domain.ClaimAction(args[1])

	fs := flag.NewFlagSet("transition", flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	comment := fs.String("comment", "", "comment, required for reject and return_to_draft")
	if err := fs.Parse(args[2:]); err != nil {
		return errUsage
	}

	cl, err := c.getClaim(ctx, id)
	if err != nil {
		return err
	}

	var list *client.SearchClient[domain.Claim]
	if c.cfg.RefetchAfterTransition {
		list = client.NewSearchClient[domain.Claim](c.api, scopeEndpoints[defaultScope(c.api.Session().Role())],
			client.WithPageSize(c.cfg.EffectivePageSize()),
			client.WithNotifier(c.notifier()),
		)
		defer list.Close()
	}
	flow := client.NewWorkflow(c.api, list,
		client.WithRefetch(c.cfg.RefetchAfterTransition),
		client.WithWorkflowNotifier(c.notifier()),
	)

	status, err := flow.Transition(ctx, cl, action, *comment)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "claim %d: %s -> %s\n", cl.ID, cl.Status, status)
	return nil
}

func (c *cli) history(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	flow := client.NewWorkflow(c.api, nil, client.WithWorkflowNotifier(c.notifier()))
	logs, err := flow.History(ctx, id)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tFROM\tTO\tBY\tCOMMENT")
	for _, l := range logs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			l.CreatedAt.Format("2006-01-02 15:04"), l.OldStatus, l.NewStatus, l.ActorID, l.Comment)
	}
	return tw.Flush()
}

func (c *cli) stats(ctx context.Context) error {
	var counts map[string]int64
	if err := c.api.Do(ctx, http.MethodGet, "/claims/stats", nil, &counts); err != nil {
		return err
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%d\n", k, counts[k])
	}
	return tw.Flush()
}

func parseID(s string) (uint, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid claim id %q", s)
	}
	return uint(n), nil
}

func roleName(code string) string {
	switch code {
	case domain.RoleAdmin:
		return "admin"
	case domain.RoleFinance:
		return "finance"
	case domain.RoleApprover:
		return "approver"
	case domain.RoleMember:
		return "member"
	default:
		return code
	}
}
