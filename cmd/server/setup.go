package main

import (
	"context"
	"net/url"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/keithlinneman/sitebuilder/internal/adminauth"
	"github.com/keithlinneman/sitebuilder/internal/blobstore"
	"github.com/keithlinneman/sitebuilder/internal/cfg"
	"github.com/keithlinneman/sitebuilder/internal/httpmw"
	"github.com/keithlinneman/sitebuilder/internal/xerrors"
)

// loadAWS returns nil when nothing needs AWS: mock mode without an SSM token.
func loadAWS(ctx context.Context, conf *cfg.App) (*aws.Config, error) {
	if conf.MockMode && conf.AdminTokenSSMParam == "" {
		return nil, nil
	}
	var opts []func(*config.LoadOptions) error
	if conf.S3Region != "" {
		opts = append(opts, config.WithRegion(conf.S3Region))
	}
	c, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, xerrors.Wrap(err, "load default AWS config")
	}
	return &c, nil
}

// adminToken prefers the SSM parameter over the flag value.
func adminToken(ctx context.Context, conf *cfg.App, awsCfg *aws.Config) (string, error) {
	if conf.AdminTokenSSMParam == "" {
		return conf.AdminToken, nil
	}
	if awsCfg == nil {
		return "", xerrors.New("SSM parameter set but AWS config not loaded")
	}
	return adminauth.LoadTokenFromSSM(ctx, ssm.NewFromConfig(*awsCfg), conf.AdminTokenSSMParam)
}

// openStore keeps everything in memory in mock mode.
func openStore(ctx context.Context, conf *cfg.App, awsCfg *aws.Config) (blobstore.Store, error) {
	if conf.MockMode {
		return blobstore.NewMemStore(), nil
	}
	return blobstore.NewS3Store(ctx, blobstore.S3Options{
		Bucket:    conf.S3Bucket,
		Region:    conf.S3Region,
		Endpoint:  conf.S3Endpoint,
		PathStyle: conf.S3PathStyle,
		AWSConfig: awsCfg,
	})
}

func urlBuilder(conf *cfg.App) blobstore.URLBuilder {
	return blobstore.URLBuilder{CDNBase: conf.CDNBase, Bucket: conf.S3Bucket, Region: conf.S3Region}
}

func clientIPOptions(conf *cfg.App) httpmw.ClientIPOptions {
	return httpmw.ClientIPOptions{TrustedHops: conf.TrustedProxyHops}
}

// cspOptions lets pages load images from wherever media URLs point and
// lets the admin overlay PUT uploads straight to the bucket.
func cspOptions(conf *cfg.App, urls blobstore.URLBuilder) httpmw.CSPOptions {
	var o httpmw.CSPOptions
	if conf.MockMode && conf.CDNBase == "" {
		return o
	}
	if img := origin(urls.PublicURL("")); img != "" {
		o.ImageHosts = append(o.ImageHosts, img)
	}
	if conf.MockMode {
		return o
	}
	upload := origin(blobstore.URLBuilder{Bucket: conf.S3Bucket, Region: conf.S3Region}.PublicURL(""))
	if conf.S3Endpoint != "" {
		upload = origin(conf.S3Endpoint)
	}
	if upload != "" {
		o.ConnectHosts = append(o.ConnectHosts, upload)
		if !slices.Contains(o.ImageHosts, upload) {
			o.ImageHosts = append(o.ImageHosts, upload)
		}
	}
	return o
}

// origin reduces a URL to scheme://host, or "" if it has neither.
func origin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
