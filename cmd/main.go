/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/cache"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	kcv1alpha1 "github.com/b1zzu/connect-operator/api/v1alpha1"
	"github.com/b1zzu/connect-operator/internal/config"
	"github.com/b1zzu/connect-operator/internal/controller"
	kafkaconnect "github.com/b1zzu/connect-operator/pkg/kafka-connect"
)

var (
	scheme   = runtime.NewScheme()
	setupLog = ctrl.Log.WithName("setup")

	// version is set at build time with -ldflags
	version = "dev"
)

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(kcv1alpha1.AddToScheme(scheme))
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	configFile                 string
	namespaces                 []string
	fullReconciliationInterval time.Duration
	maxConcurrentReconciles    int
	connectTimeout             time.Duration
	defaultImage               string
	metricsAddr                string
	probeAddr                  string
	enableLeaderElection       bool

	zap zap.Options
}

func newRootCommand() *cobra.Command {
	o := &options{}
	defaults := config.Default()

	cmd := &cobra.Command{
		Use:   "kafka-connect-operator",
		Short: "Manage Kafka Connect clusters and their connectors on Kubernetes",
		Long: `kafka-connect-operator runs Kafka Connect clusters described by Cluster and
ClusterS2I resources and keeps the connectors of every cluster annotated with
kafka-connect.b1zzu.net/use-connector-resources in sync with Connector resources.`,
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctrl.SetLogger(zap.New(zap.UseFlagOptions(&o.zap)))

			cfg, err := o.operatorConfig(cmd)
			if err != nil {
				setupLog.Error(err, "invalid configuration")
				return err
			}

			return run(ctrl.SetupSignalHandler(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&o.configFile, "config", "", "Path to the operator configuration file.")
	flags.StringSliceVar(&o.namespaces, "namespace", nil,
		"Namespaces to watch, all namespaces when empty. Overrides "+config.EnvNamespace+".")
	flags.DurationVar(&o.fullReconciliationInterval, "full-reconciliation-interval", defaults.FullReconciliationInterval.Duration,
		"Period of the full reconciliation of every resource, 0 disables it.")
	flags.IntVar(&o.maxConcurrentReconciles, "max-concurrent-reconciles", defaults.MaxConcurrentReconciles,
		"Maximum number of resources of the same kind reconciled at the same time.")
	flags.DurationVar(&o.connectTimeout, "connect-timeout", defaults.ConnectRequestTimeout.Duration,
		"Timeout of every request to a Kafka Connect REST API.")
	flags.StringVar(&o.defaultImage, "default-image", defaults.DefaultImage,
		"Image of the Kafka Connect workers of clusters that do not set one.")
	flags.StringVar(&o.metricsAddr, "metrics-bind-address", defaults.MetricsBindAddress,
		"The address the metrics endpoint binds to. Use :8080 for HTTP or leave as 0 to disable the metrics service.")
	flags.StringVar(&o.probeAddr, "health-probe-bind-address", defaults.HealthProbeBindAddress,
		"The address the probe endpoint binds to.")
	flags.BoolVar(&o.enableLeaderElection, "leader-elect", false,
		"Enable leader election for controller manager. "+
			"Enabling this will ensure there is only one active controller manager.")

	goFlags := flag.NewFlagSet("zap", flag.ContinueOnError)
	o.zap.BindFlags(goFlags)
	flags.AddGoFlagSet(goFlags)

	return cmd
}

// operatorConfig layers, from lowest to highest precedence, the defaults, the
// configuration file, the environment and the flags set on the command line.
func (o *options) operatorConfig(cmd *cobra.Command) (config.OperatorConfig, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return cfg, err
	}

	err = cfg.ApplyEnv(os.Getenv)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("namespace") {
		cfg.Namespaces = config.ParseNamespaces(strings.Join(o.namespaces, ","))
	}
	if flags.Changed("full-reconciliation-interval") {
		cfg.FullReconciliationInterval.Duration = o.fullReconciliationInterval
	}
	if flags.Changed("max-concurrent-reconciles") {
		cfg.MaxConcurrentReconciles = o.maxConcurrentReconciles
	}
	if flags.Changed("connect-timeout") {
		cfg.ConnectRequestTimeout.Duration = o.connectTimeout
	}
	if flags.Changed("default-image") {
		cfg.DefaultImage = o.defaultImage
	}
	if flags.Changed("metrics-bind-address") {
		cfg.MetricsBindAddress = o.metricsAddr
	}
	if flags.Changed("health-probe-bind-address") {
		cfg.HealthProbeBindAddress = o.probeAddr
	}
	if flags.Changed("leader-elect") {
		cfg.LeaderElect = o.enableLeaderElection
	}

	return cfg, cfg.Validate()
}

func run(ctx context.Context, cfg config.OperatorConfig) error {
	setupLog.Info("operator config", "config", cfg)

	cacheOptions := cache.Options{}
	if len(cfg.Namespaces) > 0 {
		cacheOptions.DefaultNamespaces = map[string]cache.Config{}
		for _, ns := range cfg.Namespaces {
			cacheOptions.DefaultNamespaces[ns] = cache.Config{}
		}
	}

	restConfig, err := ctrl.GetConfig()
	if err != nil {
		setupLog.Error(err, "unable to load kubeconfig")
		return err
	}

	mgr, err := ctrl.NewManager(restConfig, ctrl.Options{
		Scheme:                 scheme,
		Metrics:                metricsserver.Options{BindAddress: cfg.MetricsBindAddress},
		HealthProbeBindAddress: cfg.HealthProbeBindAddress,
		LeaderElection:         cfg.LeaderElect,
		LeaderElectionID:       cfg.LeaderElectionID,
		Cache:                  cacheOptions,
	})
	if err != nil {
		setupLog.Error(err, "unable to start manager")
		return err
	}

	if err := controller.AddIndexers(ctx, mgr.GetFieldIndexer()); err != nil {
		setupLog.Error(err, "unable to add indexers")
		return err
	}

	connectAPI := kafkaconnect.NewClient(cfg.ConnectRequestTimeout.Duration)
	trigger := controller.NewConnectorTrigger(1024)
	resync := controller.NewResync(mgr.GetClient(), cfg.FullReconciliationInterval.Duration, trigger, ctrl.Log.WithName("resync"))
	deployments := &controller.ServerSideApplyDeploymentManager{
		Client:       mgr.GetClient(),
		Scheme:       mgr.GetScheme(),
		DefaultImage: cfg.DefaultImage,
	}

	if err := (&controller.ClusterReconciler{
		Client:                  mgr.GetClient(),
		Scheme:                  mgr.GetScheme(),
		NewObject:               func() kcv1alpha1.ConnectCluster { return &kcv1alpha1.Cluster{} },
		Deployments:             deployments,
		ConnectAPI:              connectAPI,
		Trigger:                 trigger,
		MaxConcurrentReconciles: cfg.MaxConcurrentReconciles,
	}).SetupWithManager(mgr, resync.Clusters()); err != nil {
		setupLog.Error(err, "unable to create controller", "controller", "Cluster")
		return err
	}

	if err := (&controller.ClusterReconciler{
		Client:                  mgr.GetClient(),
		Scheme:                  mgr.GetScheme(),
		NewObject:               func() kcv1alpha1.ConnectCluster { return &kcv1alpha1.ClusterS2I{} },
		Deployments:             deployments,
		ConnectAPI:              connectAPI,
		Trigger:                 trigger,
		MaxConcurrentReconciles: cfg.MaxConcurrentReconciles,
	}).SetupWithManager(mgr, resync.ClusterS2Is()); err != nil {
		setupLog.Error(err, "unable to create controller", "controller", "ClusterS2I")
		return err
	}

	connectorReconciler, err := controller.NewConnectorReconciler(mgr.GetClient(), mgr.GetScheme(), connectAPI)
	if err != nil {
		setupLog.Error(err, "unable to create controller", "controller", "Connector")
		return err
	}
	connectorReconciler.Trigger = trigger
	connectorReconciler.MaxConcurrentReconciles = cfg.MaxConcurrentReconciles
	if err := connectorReconciler.SetupWithManager(mgr); err != nil {
		setupLog.Error(err, "unable to create controller", "controller", "Connector")
		return err
	}

	if cfg.FullReconciliationInterval.Duration > 0 {
		if err := mgr.Add(resync); err != nil {
			setupLog.Error(err, "unable to add full reconciliation")
			return err
		}
	}

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up health check")
		return err
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up ready check")
		return err
	}

	setupLog.Info("starting manager", "version", version)
	if err := mgr.Start(ctx); err != nil {
		setupLog.Error(err, "problem running manager")
		return err
	}

	return nil
}
