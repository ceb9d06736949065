package main

import (
	"context"
	"flag"
	"os"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/ownership-nft/pkg/app"
	"github.com/code-payments/ownership-nft/pkg/issuance"
	"github.com/code-payments/ownership-nft/pkg/solana"
	"github.com/code-payments/ownership-nft/pkg/ticket"
)

var (
	configPath = flag.String("config", "config.yaml", "configuration file path")
	ticketFlag = flag.String("ticket", "", "ticket id to issue, lower-case 8-4-4-4-12 hex; a random one is generated when empty")
	ownerFlag  = flag.String("owner", "", "base58 owner of the ownership NFT; defaults to the payer")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		logrus.StandardLogger().WithError(err).Error("issuance failed")
		os.Exit(1)
	}
}

func run() error {
	env, err := app.Load(*configPath)
	if err != nil {
		return err
	}
	defer env.Shutdown()

	ctx, cancel := env.Context(context.Background())
	defer cancel()

	id := ticket.New()
	if len(*ticketFlag) > 0 {
		id, err = ticket.FromString(*ticketFlag)
		if err != nil {
			return err
		}
	}

	var owner []byte
	if len(*ownerFlag) > 0 {
		owner, err = base58.Decode(*ownerFlag)
		if err != nil {
			return err
		}
	}

	payer, err := env.LoadPayer()
	if err != nil {
		return err
	}
	admin, err := env.LoadAdmin()
	if err != nil {
		return err
	}

	issuer, err := issuance.NewIssuer(ctx, solana.New(env.Config.RPCEndpoint), env.IssuanceConfig())
	if err != nil {
		return err
	}

	log := logrus.StandardLogger().WithFields(logrus.Fields{
		"ticket": id.String(),
		"mode":   string(issuer.Settings().MetadataMode),
	})

	result, err := issuer.Issue(ctx, &issuance.IssueArgs{
		Ticket: id,
		Payer:  issuance.NewKeypairSigner(payer),
		Admin:  issuance.NewKeypairSigner(admin),
		Owner:  owner,
	})
	if result != nil && result.Transaction != nil {
		log = log.WithFields(logrus.Fields{
			"mint":     result.Transaction.Addresses.Mint.String(),
			"metadata": result.Transaction.Addresses.Metadata.String(),
			"holding":  base58.Encode(result.Transaction.Addresses.Holding),
			"attempts": result.Attempts,
		})
	}
	if result != nil && result.Handle != nil {
		log = log.WithField("signature", result.Handle.Signature.String())
	}
	if err != nil {
		log.WithError(err).Warn("ownership nft not issued")
		return err
	}

	log.Info("ownership nft issued")
	return nil
}
