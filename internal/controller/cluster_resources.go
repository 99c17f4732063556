package controller

import (
	"fmt"
	"strings"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/intstr"
	appsv1ac "k8s.io/client-go/applyconfigurations/apps/v1"
	corev1ac "k8s.io/client-go/applyconfigurations/core/v1"
	metav1ac "k8s.io/client-go/applyconfigurations/meta/v1"

	kcv1alpha1 "github.com/b1zzu/connect-operator/api/v1alpha1"
	"github.com/b1zzu/connect-operator/internal/association"
	"github.com/b1zzu/connect-operator/pkg/utils"
)

const (
	// restPort is the port of the Kafka Connect REST API
	restPort int32 = 8083

	configFileName = "connect.properties"

	configHashAnnotation = "config/hash"
)

// TODO: Network policies

func labelsForCluster(cluster kcv1alpha1.ConnectCluster) map[string]string {
	return map[string]string{
		"app.kubernetes.io/name":       "kafka-connect",
		"app.kubernetes.io/instance":   cluster.ResourcePrefix(),
		"app.kubernetes.io/managed-by": serverSideApplyManager,
	}
}

func deploymentNameForCluster(cluster kcv1alpha1.ConnectCluster) string {
	return cluster.ResourcePrefix()
}

func configMapNameForCluster(cluster kcv1alpha1.ConnectCluster) string {
	return fmt.Sprintf("%s-config", cluster.ResourcePrefix())
}

func serviceNameForCluster(cluster kcv1alpha1.ConnectCluster) string {
	return fmt.Sprintf("%s-api", cluster.ResourcePrefix())
}

func deploymentForCluster(
	cluster kcv1alpha1.ConnectCluster,
	gvk schema.GroupVersionKind,
	defaultImage string,
	configHash string,
) *appsv1ac.DeploymentApplyConfiguration {
	spec := cluster.ConnectSpec()

	image := defaultImage
	if spec.Image != "" {
		image = spec.Image
	}

	// TODO: Allow to configure mount volumes for plugins

	labels := labelsForCluster(cluster)

	podAnnotations := map[string]string{
		configHashAnnotation: configHash,
	}

	var replicas int32 = 1
	if spec.Replicas != nil {
		replicas = *spec.Replicas
	}

	// TODO: Configure Resources R: 250m/1G L: 1000m/4G
	// TODO: Allow configuration of topology spread

	return appsv1ac.Deployment(deploymentNameForCluster(cluster), cluster.GetNamespace()).
		WithLabels(labels).
		WithOwnerReferences(ownerReferenceForCluster(cluster, gvk)).
		WithSpec(appsv1ac.DeploymentSpec().
			WithReplicas(replicas).
			WithSelector(metav1ac.LabelSelector().WithMatchLabels(labels)).
			WithTemplate(corev1ac.PodTemplateSpec().
				WithLabels(labels).
				WithAnnotations(podAnnotations).
				WithSpec(corev1ac.PodSpec().
					WithSecurityContext(corev1ac.PodSecurityContext().
						WithRunAsNonRoot(true)).
					WithContainers(corev1ac.Container().
						WithName("kafka-connect").
						WithImage(image).
						WithImagePullPolicy(corev1.PullIfNotPresent).
						WithCommand("/opt/kafka/bin/connect-distributed.sh", "/config/"+configFileName).
						WithEnv(corev1ac.EnvVar().
							WithName("CONNECT_REST_ADVERTISED_HOST_NAME").
							WithValueFrom(corev1ac.EnvVarSource().WithFieldRef(corev1ac.ObjectFieldSelector().WithFieldPath("status.podIP")))).
						WithPorts(corev1ac.ContainerPort().
							WithContainerPort(restPort).
							WithName("http")).
						WithReadinessProbe(corev1ac.Probe().
							WithHTTPGet(corev1ac.HTTPGetAction().
								WithPath("/").
								WithPort(intstr.FromString("http"))).
							WithPeriodSeconds(10)).
						WithLivenessProbe(corev1ac.Probe().
							WithTCPSocket(corev1ac.TCPSocketAction().
								WithPort(intstr.FromString("http"))).
							WithInitialDelaySeconds(60).
							WithPeriodSeconds(20)).
						WithVolumeMounts(corev1ac.VolumeMount().
							WithName("config").
							WithMountPath("/config").
							WithReadOnly(true)).
						WithSecurityContext(corev1ac.SecurityContext().
							WithRunAsNonRoot(true).
							WithRunAsUser(65534).
							WithAllowPrivilegeEscalation(false).
							WithCapabilities(corev1ac.Capabilities().WithDrop("ALL"))),
					).
					WithVolumes(corev1ac.Volume().
						WithName("config").
						WithConfigMap(corev1ac.ConfigMapVolumeSource().
							WithName(configMapNameForCluster(cluster)))),
				),
			),
		)
}

func kafkaConnectPropertiesForCluster(cluster kcv1alpha1.ConnectCluster) map[string]string {
	spec := cluster.ConnectSpec()
	prefix := cluster.ResourcePrefix()

	// Defaults that can be overridden by spec.config
	defaults := map[string]string{
		"group.id":             fmt.Sprintf("%s-%s", cluster.GetNamespace(), prefix),
		"config.storage.topic": prefix + "-configs",
		"offset.storage.topic": prefix + "-offsets",
		"status.storage.topic": prefix + "-status",
		"key.converter":        "org.apache.kafka.connect.json.JsonConverter",
		"value.converter":      "org.apache.kafka.connect.json.JsonConverter",
	}

	overrides := map[string]string{}
	if spec.BootstrapServers != "" {
		overrides["bootstrap.servers"] = spec.BootstrapServers
	}

	// Hardcoded mandatory properties
	mandatory := map[string]string{
		"listeners":                 fmt.Sprintf("http://:%d", restPort),
		"rest.advertised.host.name": "${env:CONNECT_REST_ADVERTISED_HOST_NAME}",
		"rest.advertised.listener":  "http",
		"rest.advertised.port":      fmt.Sprint(restPort),
		"rest.extension.classes":    "", // cluster is secured using network policies

		// Env config provider
		// Allow to define additional properties as CONNECT_* envs
		// See: https://kafka.apache.org/41/configuration/configuration-providers/#envvarconfigprovider
		"config.providers":                             "env",
		"config.providers.env.class":                   "org.apache.kafka.common.config.provider.EnvVarConfigProvider",
		"config.providers.env.param.allowlist.pattern": "^CONNECT_.*",
	}

	// TODO: File config providers

	return utils.MergeProperties(defaults, spec.Config, overrides, mandatory)
}

// configMapForCluster returns the worker ConfigMap and the hash of its content.
func configMapForCluster(cluster kcv1alpha1.ConnectCluster, gvk schema.GroupVersionKind) (*corev1ac.ConfigMapApplyConfiguration, string) {
	properties := utils.FormatProperties(kafkaConnectPropertiesForCluster(cluster))

	return corev1ac.ConfigMap(configMapNameForCluster(cluster), cluster.GetNamespace()).
		WithLabels(labelsForCluster(cluster)).
		WithData(map[string]string{configFileName: properties}).
		WithOwnerReferences(ownerReferenceForCluster(cluster, gvk)), utils.ConfigHash(properties)
}

func serviceForCluster(cluster kcv1alpha1.ConnectCluster, gvk schema.GroupVersionKind) *corev1ac.ServiceApplyConfiguration {
	labels := labelsForCluster(cluster)

	return corev1ac.Service(serviceNameForCluster(cluster), cluster.GetNamespace()).
		WithLabels(labels).
		WithOwnerReferences(ownerReferenceForCluster(cluster, gvk)).
		WithSpec(corev1ac.ServiceSpec().
			WithType(corev1.ServiceTypeClusterIP).
			WithSelector(labels).
			WithPorts(corev1ac.ServicePort().
				WithName("http").
				WithProtocol(corev1.ProtocolTCP).
				WithPort(restPort).
				WithTargetPort(intstr.FromString("http"))))
}

// urlForCluster is the in-cluster URL of the REST API exposed by serviceForCluster.
func urlForCluster(cluster kcv1alpha1.ConnectCluster) string {
	return fmt.Sprintf("http://%s:%d", association.ServiceHost(serviceNameForCluster(cluster), cluster.GetNamespace()), restPort)
}

func ownerReferenceForCluster(cluster kcv1alpha1.ConnectCluster, gvk schema.GroupVersionKind) *metav1ac.OwnerReferenceApplyConfiguration {
	return metav1ac.OwnerReference().
		WithAPIVersion(gvk.GroupVersion().String()).
		WithKind(gvk.Kind).
		WithName(cluster.GetName()).
		WithUID(cluster.GetUID()).
		WithBlockOwnerDeletion(true).
		WithController(true)
}

// kindLabel is the lower case kind used in log messages and metric labels.
func kindLabel(gvk schema.GroupVersionKind) string {
	return strings.ToLower(gvk.Kind)
}
