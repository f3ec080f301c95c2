package rest

import (
	"fmt"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/leaflink/leaflink"
)

type ProfileController struct {
	Service *leaflink.ProfileService
}

// InstallTo registers the profile routes. Reads are public, owner gated
// writes need an authorized caller and tags accept anonymous callers.
func (c *ProfileController) InstallTo(requestAuthorizer fiber.Handler, optionalAuthorizer fiber.Handler, app *fiber.App) {
	app.Post("/profiles", combineHandlers(requestAuthorizer, c.serveInitialize))
	app.Get("/profiles/:owner", c.serveProfile)
	app.Get("/profiles/:owner/owner", c.serveOwner)

	app.Get("/profiles/:owner/avatar", c.serveAvatar)
	app.Put("/profiles/:owner/avatar", combineHandlers(requestAuthorizer, c.serveSetAvatar))

	app.Get("/profiles/:owner/nfts", c.listHandler(func(p *leaflink.Profile) interface{} { return p.NFTs() }))
	app.Post("/profiles/:owner/nfts", combineHandlers(requestAuthorizer, c.serveAddNft))

	app.Get("/profiles/:owner/tags", c.listHandler(func(p *leaflink.Profile) interface{} { return p.Tags() }))
	app.Post("/profiles/:owner/tags", combineHandlers(optionalAuthorizer, c.serveAddTag))

	app.Get("/profiles/:owner/educations", c.listHandler(func(p *leaflink.Profile) interface{} { return p.Educations() }))
	app.Post("/profiles/:owner/educations", combineHandlers(requestAuthorizer, c.serveAddEducation))

	app.Get("/profiles/:owner/jobs", c.listHandler(func(p *leaflink.Profile) interface{} { return p.Jobs() }))
	app.Post("/profiles/:owner/jobs", combineHandlers(requestAuthorizer, c.serveAddJob))

	app.Get("/profiles/:owner/poaps", c.listHandler(func(p *leaflink.Profile) interface{} { return p.Poaps() }))
	app.Post("/profiles/:owner/poaps", combineHandlers(requestAuthorizer, c.serveAddPoap))

	app.Get("/profiles/:owner/comments", c.listHandler(func(p *leaflink.Profile) interface{} { return p.Comments() }))
	app.Post("/profiles/:owner/comments", combineHandlers(requestAuthorizer, c.serveAddComment))

	app.Get("/profiles/:owner/following", c.listHandler(func(p *leaflink.Profile) interface{} { return p.Following() }))
	app.Post("/profiles/:owner/following", combineHandlers(requestAuthorizer, c.serveAddFollowing))

	app.Get("/profiles/:owner/followers", c.listHandler(func(p *leaflink.Profile) interface{} { return p.FollowedBy() }))
	app.Post("/profiles/:owner/followers", combineHandlers(requestAuthorizer, c.serveAddFollower))

	app.Post("/profiles/:owner/touch", combineHandlers(requestAuthorizer, c.serveTouch))
}

func ownerParam(ctx *fiber.Ctx) (leaflink.AccountId, error) {
	encodedOwner := ctx.Params("owner")
	if encodedOwner == "" {
		return "", fiber.NewError(fiber.StatusBadRequest, "no owner id")
	}
	owner, err := url.PathUnescape(encodedOwner)
	if err != nil || owner == "" {
		return "", fiber.NewError(fiber.StatusBadRequest, "invalid owner id")
	}
	// params point into the request buffer, which fasthttp reuses
	return leaflink.AccountId(utils.CopyString(owner)), nil
}

func parseBody(ctx *fiber.Ctx, body interface{}) error {
	if err := ctx.BodyParser(body); err != nil {
		requestLog(ctx).WithError(err).Infoln("Invalid body.")
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	return nil
}

// mutation resolves owner and caller, then runs op and answers 204.
func mutation(op func(ctx *fiber.Ctx, caller leaflink.AccountId, owner leaflink.AccountId) error) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		owner, err := ownerParam(ctx)
		if err != nil {
			return err
		}
		caller, ok := callerOf(ctx)
		if !ok {
			return fiber.ErrUnauthorized
		}
		if err := op(ctx, caller, owner); err != nil {
			return err
		}
		return ctx.SendStatus(fiber.StatusNoContent)
	}
}

func (c *ProfileController) loadProfile(ctx *fiber.Ctx) (*leaflink.Profile, error) {
	owner, err := ownerParam(ctx)
	if err != nil {
		return nil, err
	}
	profile, err := c.Service.ByOwner(ctx.Context(), owner)
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (c *ProfileController) listHandler(project func(p *leaflink.Profile) interface{}) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		profile, err := c.loadProfile(ctx)
		if err != nil {
			return err
		}
		return ctx.JSON(project(profile))
	}
}

func (c *ProfileController) serveInitialize(ctx *fiber.Ctx) error {
	caller, ok := callerOf(ctx)
	if !ok || caller == "" {
		return fiber.ErrUnauthorized
	}
	profile, err := c.Service.Initialize(ctx.Context(), caller)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(profile.Record())
}

func (c *ProfileController) serveProfile(ctx *fiber.Ctx) error {
	profile, err := c.loadProfile(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(profile.Record())
}

func (c *ProfileController) serveOwner(ctx *fiber.Ctx) error {
	profile, err := c.loadProfile(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(map[string]interface{}{"owner_id": profile.Owner()})
}

func (c *ProfileController) serveAvatar(ctx *fiber.Ctx) error {
	profile, err := c.loadProfile(ctx)
	if err != nil {
		return err
	}
	type AvatarResponse struct {
		Avatar *string `json:"avatar"`
	}
	response := AvatarResponse{}
	if avatar, ok := profile.Avatar(); ok {
		response.Avatar = &avatar
	}
	return ctx.JSON(response)
}

func (c *ProfileController) serveSetAvatar(ctx *fiber.Ctx) error {
	return mutation(func(ctx *fiber.Ctx, caller leaflink.AccountId, owner leaflink.AccountId) error {
		body := struct {
			Url string `json:"url"`
		}{}
		if err := parseBody(ctx, &body); err != nil {
			return err
		}
		if body.Url == "" {
			return fiber.NewError(fiber.StatusBadRequest, "missing url")
		}
		return c.Service.SetAvatar(ctx.Context(), caller, owner, body.Url)
	})(ctx)
}

func parseNft(ctx *fiber.Ctx) (leaflink.NFT, error) {
	var nft leaflink.NFT
	if err := parseBody(ctx, &nft); err != nil {
		return nft, err
	}
	if nft.ContractId == "" || nft.TokenId == "" {
		return nft, fiber.NewError(fiber.StatusBadRequest, "missing contract_id or token_id")
	}
	return nft, nil
}

func (c *ProfileController) serveAddNft(ctx *fiber.Ctx) error {
	return mutation(func(ctx *fiber.Ctx, caller leaflink.AccountId, owner leaflink.AccountId) error {
		nft, err := parseNft(ctx)
		if err != nil {
			return err
		}
		return c.Service.AddNFT(ctx.Context(), caller, owner, nft)
	})(ctx)
}

func (c *ProfileController) serveAddPoap(ctx *fiber.Ctx) error {
	return mutation(func(ctx *fiber.Ctx, caller leaflink.AccountId, owner leaflink.AccountId) error {
		poap, err := parseNft(ctx)
		if err != nil {
			return err
		}
		return c.Service.AddPoap(ctx.Context(), caller, owner, poap)
	})(ctx)
}

func (c *ProfileController) serveAddTag(ctx *fiber.Ctx) error {
	return mutation(func(ctx *fiber.Ctx, caller leaflink.AccountId, owner leaflink.AccountId) error {
		body := struct {
			Tag string `json:"tag"`
		}{}
		if err := parseBody(ctx, &body); err != nil {
			return err
		}
		if body.Tag == "" {
			return fiber.NewError(fiber.StatusBadRequest, "missing tag")
		}
		return c.Service.AddTag(ctx.Context(), caller, owner, body.Tag)
	})(ctx)
}

func (c *ProfileController) serveAddEducation(ctx *fiber.Ctx) error {
	return mutation(func(ctx *fiber.Ctx, caller leaflink.AccountId, owner leaflink.AccountId) error {
		var edu leaflink.Education
		if err := parseBody(ctx, &edu); err != nil {
			return err
		}
		if edu.School == "" {
			return fiber.NewError(fiber.StatusBadRequest, "missing school")
		}
		return c.Service.AddEducation(ctx.Context(), caller, owner, edu)
	})(ctx)
}

func (c *ProfileController) serveAddJob(ctx *fiber.Ctx) error {
	return mutation(func(ctx *fiber.Ctx, caller leaflink.AccountId, owner leaflink.AccountId) error {
		var job leaflink.Job
		if err := parseBody(ctx, &job); err != nil {
			return err
		}
		if job.Company == "" {
			return fiber.NewError(fiber.StatusBadRequest, "missing company")
		}
		return c.Service.AddJob(ctx.Context(), caller, owner, job)
	})(ctx)
}

func (c *ProfileController) serveAddComment(ctx *fiber.Ctx) error {
	return mutation(func(ctx *fiber.Ctx, caller leaflink.AccountId, owner leaflink.AccountId) error {
		var comment leaflink.Comment
		if err := parseBody(ctx, &comment); err != nil {
			return err
		}
		return c.Service.AddComment(ctx.Context(), caller, owner, comment)
	})(ctx)
}

func (c *ProfileController) serveAddFollowing(ctx *fiber.Ctx) error {
	return mutation(func(ctx *fiber.Ctx, caller leaflink.AccountId, owner leaflink.AccountId) error {
		body := struct {
			AccountId leaflink.AccountId `json:"account_id"`
		}{}
		if err := parseBody(ctx, &body); err != nil {
			return err
		}
		if body.AccountId == "" {
			return fiber.NewError(fiber.StatusBadRequest, "missing account_id")
		}
		return c.Service.AddFollowing(ctx.Context(), caller, owner, body.AccountId)
	})(ctx)
}

func (c *ProfileController) serveAddFollower(ctx *fiber.Ctx) error {
	return mutation(func(ctx *fiber.Ctx, caller leaflink.AccountId, owner leaflink.AccountId) error {
		return c.Service.AddFollowedBy(ctx.Context(), caller, owner)
	})(ctx)
}

func (c *ProfileController) serveTouch(ctx *fiber.Ctx) error {
	owner, err := ownerParam(ctx)
	if err != nil {
		return err
	}
	caller, ok := callerOf(ctx)
	if !ok {
		return fiber.ErrUnauthorized
	}
	at, err := c.Service.Touch(ctx.Context(), caller, owner)
	if err != nil {
		return err
	}
	if err := ctx.JSON(map[string]interface{}{"last_update_at": at}); err != nil {
		return fmt.Errorf("json serialize: %w", err)
	}
	return nil
}
